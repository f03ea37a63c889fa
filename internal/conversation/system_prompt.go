package conversation

// PersonaPrompt is the system instruction for every chat reply.
const PersonaPrompt = "You are PsyCare, an empathetic mental health chatbot for students. " +
	"Respond with compassion, suggest relaxation tips, and guide them to tests if needed. " +
	"Escalate to human therapists if suicidal intent is detected."

// BusyReply is returned instead of an error when the reply provider is overloaded.
const BusyReply = "AI service is busy, please try again later. " +
	"You can still use basic features or talk to a human therapist."
