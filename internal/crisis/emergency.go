package crisis

// EmergencyReply is the fixed crisis message. It is persisted untranslated.
const EmergencyReply = "Your life matters, and I want you to get help immediately.\n" +
	"I am an AI and cannot offer the support you need.\n" +
	"**Please call emergency services or go to the nearest emergency room right now.**\n" +
	"If you are in the US, dial 911.\n" +
	"If you are elsewhere, search online for your local emergency number.\n" +
	"There are people who want to help you. Please, please seek help immediately."

// DegradedNotice is appended when crisis confirmation was unavailable.
const DegradedNotice = "\n\nAI service is busy, using basic detection."

// Hotline is a crisis line. Exactly one of Phone or Website is set.
type Hotline struct {
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Website string `json:"website,omitempty"`
}

var hotlines = []Hotline{
	{Name: "Local Emergency", Phone: "112"},
	{Name: "KIRAN (24x7 Mental Health Helpline - India)", Phone: "1800-599-0019"},
	{Name: "iCALL (TISS)", Phone: "9152987821"},
	{Name: "AASRA (NGO)", Website: "https://www.aasra.info/"},
}

// Hotlines returns a copy of the regional hotline directory.
func Hotlines() []Hotline {
	return append([]Hotline(nil), hotlines...)
}
