package domain

// Message is a single persisted conversation turn: the user query, the primary
// agent's answer, and the follow-up questions offered after it.
type Message struct {
	PK                string
	SK                string
	ConversationID    string
	Text              string
	Answer            string
	AgentType         string
	FollowUpQuestions []string
	Status            string
	TTL               int64
}

// ConversationMeta stores aggregate conversation state.
type ConversationMeta struct {
	PK             string
	SK             string
	ConversationID string
	LastActivity   string
	Turns          int
	TTL            int64
}

// CompletedTurn is the data the usecase persists once follow-ups are generated.
type CompletedTurn struct {
	Query             string
	Answer            string
	AgentType         string
	FollowUpQuestions []string
}
