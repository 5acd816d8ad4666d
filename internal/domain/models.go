package domain

import "time"

// Question is a single multiple-choice question. The JSON tags match the
// admin-ingested question-set exchange format.
type Question struct {
	Text         string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct"`
	Explanation  string   `json:"explanation,omitempty"`
}

// Subject is a named grouping of chapters. Names are unique and subjects are
// append-only from the engine's point of view.
type Subject struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Chapter belongs to exactly one subject and owns an ordered question list
// once published.
type Chapter struct {
	ID            string `json:"id"`
	Subject       string `json:"subject"`
	Name          string `json:"name"`
	QuestionCount int    `json:"questionCount"`
}

// ChapterID derives the stable chapter key from its subject and name.
// Subject names are unique and chapter names are unique within a subject,
// so the pair identifies a chapter across all stores.
func ChapterID(subject, chapter string) string {
	return subject + "/" + chapter
}

// User is created or refreshed on first contact; upserts are idempotent.
type User struct {
	ID               string `json:"id"`
	DisplayName      string `json:"displayName"`
	Handle           string `json:"handle,omitempty"`
	ChannelMember    bool   `json:"channelMember"`
	ProfileConfirmed bool   `json:"profileConfirmed"`
}

// Progress is the per-(user, chapter) session record. Invariants:
// len(Answers) == CurrentIndex and 0 <= Score <= CurrentIndex <= question count.
type Progress struct {
	UserID       string
	ChapterID    string
	CurrentIndex int
	Score        int
	Answers      []int
	Completed    bool
	// PromptRef identifies the currently rendered question so the transport
	// can recognize and clean up a stale prompt. Empty once completed.
	PromptRef string
	UpdatedAt time.Time
}

// UserScore is one row of an aggregated score sum, before ranks are assigned.
type UserScore struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Total       int    `json:"total"`
}

// ScoreEntry is a ranked leaderboard row. Ranks are dense and 1-based; ties
// keep the store's stable user order.
type ScoreEntry struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	TotalScore  int    `json:"totalScore"`
	Rank        int    `json:"rank"`
}

// RenderKind enumerates what the presentation layer should draw next.
type RenderKind string

const (
	RenderShowQuestion   RenderKind = "showQuestion"
	RenderShowCompletion RenderKind = "showCompletion"
	RenderOfferRetake    RenderKind = "offerRetakeOrExit"
)

// RenderAction is the engine's instruction to the presentation layer. Only the
// fields relevant to Kind are populated.
type RenderAction struct {
	Kind          RenderKind `json:"kind"`
	ChapterID     string     `json:"chapterId"`
	QuestionIndex int        `json:"questionIndex"`
	Question      *Question  `json:"question,omitempty"`
	PromptRef     string     `json:"promptRef,omitempty"`
	Score         int        `json:"score"`
	Total         int        `json:"total"`
	Percent       float64    `json:"percent"`
	Band          Band       `json:"band,omitempty"`
}

// AnswerOutcome reports the result of an accepted answer submission.
type AnswerOutcome struct {
	Correct            bool         `json:"correct"`
	CorrectOptionIndex int          `json:"correctOptionIndex"`
	Explanation        string       `json:"explanation,omitempty"`
	Next               RenderAction `json:"next"`
}
