package domain

// Question is a single free-text quiz question. It has no identity of its
// own; its position in the quiz is the addressing key for navigation.
type Question struct {
	Text   string `json:"text"`
	Answer string `json:"answer"`
}

// Quiz is an ordered list of questions, identified externally by name.
type Quiz struct {
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// QuizSummary is the listing view of a quiz, with the derived maximum XP.
type QuizSummary struct {
	Name          string `json:"name"`
	Title         string `json:"title"`
	QuestionCount int    `json:"questionCount"`
	MaxXP         int    `json:"maxXp"`
}

// AnswerRecord captures the outcome of one submitted answer. Records are
// append-only within an attempt and immutable once appended.
type AnswerRecord struct {
	Question  string `json:"question"`
	Submitted string `json:"submitted"`
	Expected  string `json:"expected"`
	Correct   bool   `json:"correct"`
}

// Attempt is the transient state of one quiz sitting. A student has at most
// one active attempt; starting a new one discards the old unconditionally.
// The current question index is derived: len(Answers).
type Attempt struct {
	QuizName string         `json:"quizName"`
	Practice bool           `json:"practice"`
	Answers  []AnswerRecord `json:"answers"`
}

// Progress is the durable ledger entry for one (student, quiz) pair.
// XPEarned accumulates only from scored-mode correct answers; Completed flips
// true exactly once, when the last question of a scored attempt is answered.
type Progress struct {
	StudentID  string         `json:"studentId"`
	QuizName   string         `json:"quizName"`
	Completed  bool           `json:"completed"`
	XPEarned   int            `json:"xpEarned"`
	Transcript []AnswerRecord `json:"transcript,omitempty"`
}

// Student is a durable account. NemesisID, if set, must reference another
// student in the same group; the invariant is enforced at the mutation
// boundary, not by the schema.
type Student struct {
	ID           string
	Name         string
	PasswordHash string
	Role         Role
	XP           int
	GroupID      *string
	NemesisID    *string
}

// Group is a named set of students ranked against each other.
type Group struct {
	ID   string
	Name string
}

// Feedback is the per-question response after a submission.
type Feedback struct {
	Correct   bool   `json:"correct"`
	Expected  string `json:"expected"`
	Done      bool   `json:"done"`
	NextIndex int    `json:"nextIndex"`
}

// LeaderboardEntry is a snapshot-friendly view of a ranked student.
type LeaderboardEntry struct {
	StudentID string `json:"studentId"`
	Name      string `json:"name"`
	XP        int    `json:"xp"`
	Position  int    `json:"position"` // 1-based rank within the group
}

// Leaderboard is the ordered scoreboard for a group.
type Leaderboard struct {
	GroupID string             `json:"groupId"`
	Entries []LeaderboardEntry `json:"entries"`
}

// NemesisView is the pairwise rivalry comparison shown on the dashboard.
type NemesisView struct {
	TargetName string `json:"targetName"`
	XPDelta    int    `json:"xpDelta"` // absolute difference
	Ahead      bool   `json:"ahead"`   // caller xp >= nemesis xp
}
