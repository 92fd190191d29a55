package domain

// ScoreSource identifies which retrieval path produced a candidate's score.
type ScoreSource string

const (
	ScoreSourceFTS     ScoreSource = "fts"
	ScoreSourceVector  ScoreSource = "vector"
	ScoreSourceTrigram ScoreSource = "trigram"
)

// Candidate is a scored entity competing to ground the answer.
// Candidates are created per query and never persisted.
//
// BaseScore is a weighted sum of normalized components and stays in [0,1].
// FinalScore applies the bounded multiplicative context boost and stays in
// [0,1.25].
type Candidate struct {
	ID       string
	Title    string
	Category string
	Brand    string
	Model    string
	Content  string

	// Normalized score components, each in [0,1].
	AliasScore  float64
	FTSScore    float64
	VectorScore float64

	BaseScore     float64
	FinalScore    float64
	ScoreSource   ScoreSource
	BoostsApplied []string
}

// DecisionMode is the terminal outcome of one resolution.
type DecisionMode string

const (
	DecisionSingle  DecisionMode = "single"
	DecisionMulti   DecisionMode = "multi"
	DecisionRefusal DecisionMode = "refusal"
)

// ResolutionDecision is the tagged union for the Deciding step:
// Single carries one candidate, Multi carries exactly two, Refusal none.
type ResolutionDecision struct {
	Mode       DecisionMode
	Candidates []Candidate
	Reason     string
}
