package domain

// Submission is the judging request body sent on every iteration.
type Submission struct {
	Code                string `json:"code"`
	SubmitOrder         int    `json:"submitOrder"`
	ProgrammingLanguage string `json:"programmingLanguage"`
	ProblemID           string `json:"problemId"`
	UserID              string `json:"userId"`
}

// Check names recorded by the workload.
const (
	CheckLoggedIn         = "logged in successfully"
	CheckProfileFetched   = "profile fetched successfully"
	CheckSubmissionOK     = "submission returns 200"
	CheckSubmissionNot500 = "submission does not return 500"
)
