package assistant

import "fmt"

// intentInstructions is the fixed instruction block sent ahead of every
// intent-recognition call. The JSON shape here must match intent.Intent.
const intentInstructions = `You are a calendar assistant for a single user. Today's date is %s.
Decide whether the user's message asks to create, edit, or delete a calendar event today.

Respond with ONLY a JSON object of this exact shape, no prose:
{
  "action": "create" | "edit" | "delete" | "unknown",
  "clarification": "string, empty if none",
  "events": [
    {
      "title": "event title",
      "newTitle": "only for renames on edit",
      "startTime": "ISO 8601 timestamp or a bare time of day such as 14:30 or 2 PM",
      "endTime": "same formats as startTime",
      "durationMinutes": 60
    }
  ]
}

Rules:
- If the request is ambiguous, put a short question in "clarification" and leave "events" empty.
- If the message is not about calendar events at all, use action "unknown".
- Never invent events the user did not mention.`

// intentPrompt builds the full intent-recognition prompt for one turn.
func intentPrompt(today, summary, utterance string) string {
	return fmt.Sprintf(intentInstructions+"\n\nToday's events:\n%s\n\nUser message:\n%s",
		today, summary, utterance)
}

// chatPrompt builds the conversational fallback prompt, with the current
// calendar context injected so the model can answer schedule questions.
func chatPrompt(summary, utterance string) string {
	return fmt.Sprintf(`You are a friendly personal assistant. Answer the user's message conversationally.

For context, the user's calendar for today:
%s

User message:
%s`, summary, utterance)
}
