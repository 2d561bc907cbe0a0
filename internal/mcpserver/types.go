package mcpserver

// ProcessInput is the input of the process_documents tool.
type ProcessInput struct {
	Paths []string `json:"paths" jsonschema:"files, directories or ** glob patterns to read as one corpus"`
}

// ProcessOutput summarizes a successful ingestion.
type ProcessOutput struct {
	Message   string   `json:"message"`
	Documents int      `json:"documents"`
	Chunks    int      `json:"chunks"`
	Skipped   []string `json:"skipped,omitempty"`
}

// AskInput is the input of the ask_documents tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"question to answer from the processed documents"`
}

// AskOutput carries the grounded answer.
type AskOutput struct {
	Answer string `json:"answer"`
	Turns  int    `json:"turns"`
}
