package video

import "github.com/harunnryd/sift/internal/transcript"

type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	VideoID     string               `json:"video_id"`
	Transcript  []transcript.Segment `json:"transcript,omitempty"`
	Message     string               `json:"message"`
	ChatHistory []ChatTurn           `json:"chat_history,omitempty"`
}

type ChatResponse struct {
	Response           string    `json:"response"`
	RelevantTimestamps []float64 `json:"relevant_timestamps"`
}

type SummaryRequest struct {
	VideoID    string               `json:"video_id"`
	Transcript []transcript.Segment `json:"transcript,omitempty"`
}

type SummaryResponse struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points"`
}

type QuizRequest struct {
	VideoID      string               `json:"video_id"`
	Transcript   []transcript.Segment `json:"transcript,omitempty"`
	NumQuestions int                  `json:"num_questions,omitempty"`
	Difficulty   string               `json:"difficulty,omitempty"`
}

type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

type QuizResponse struct {
	Questions []QuizQuestion `json:"questions"`
}
