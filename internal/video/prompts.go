package video

import "fmt"

const chatSystemPrompt = `You are an assistant that helps users understand YouTube videos.
You have access to the transcript of the video. When answering questions,
refer to specific parts of the video when relevant.

Transcript:
%s

When answering, mention relevant timestamps from the video.
Format your response as regular text, but include timestamps like [MM:SS] when referencing specific parts.`

const summaryPrompt = `Create a comprehensive summary of the following video transcript.
Include both a concise overall summary and a list of key points.

Transcript:
%s

Format your response as JSON with the following structure:
{
  "summary": "Overall summary of the video",
  "key_points": ["Key point 1", "Key point 2"]
}`

const quizPrompt = `Create a multiple-choice quiz based on the following video transcript.
Generate %d questions with %s difficulty.

Transcript:
%s

Format your response as JSON with the following structure:
{
  "questions": [
    {
      "question": "Question text",
      "options": ["Option A", "Option B", "Option C", "Option D"],
      "correct_answer": 0,
      "explanation": "Explanation of why this answer is correct"
    }
  ]
}

Each question should be clear and specific, have exactly 4 options with exactly
1 correct answer (correct_answer is the 0-based option index), and include a brief explanation.`

func buildChatSystem(formatted string) string {
	return fmt.Sprintf(chatSystemPrompt, formatted)
}

func buildSummaryPrompt(formatted string) string {
	return fmt.Sprintf(summaryPrompt, formatted)
}

func buildQuizPrompt(formatted string, n int, difficulty string) string {
	return fmt.Sprintf(quizPrompt, n, difficulty, formatted)
}
