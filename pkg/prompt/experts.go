package prompt

// expertEntry is one catalog entry binding a persona to its prompt file
// (name without the .txt suffix).
type expertEntry struct {
	ID          string
	Name        string
	Description string
	Icon        string
	Category    string
	PromptName  string
}

// DefaultExpertID is used when the caller does not pick a persona.
const DefaultExpertID = "academic-mentor"

// ClassificationPromptName backs the tag/description extraction call.
const ClassificationPromptName = "literature-classification-system-prompt"

// catalog is fixed at process start; entries whose prompt file is
// missing on disk are excluded from the advertised list.
var catalog = []expertEntry{
	{
		ID:          "academic-mentor",
		Name:        "Academic Mentor",
		Description: "Walks through the paper the way a thesis advisor would, connecting it to the wider field.",
		Icon:        "mortarboard",
		Category:    "general",
		PromptName:  "academic-mentor",
	},
	{
		ID:          "paper-reviewer",
		Name:        "Paper Reviewer",
		Description: "Reads critically, weighing methodology, evidence, and threats to validity.",
		Icon:        "magnifier",
		Category:    "critique",
		PromptName:  "paper-reviewer",
	},
	{
		ID:          "quick-summarizer",
		Name:        "Quick Summarizer",
		Description: "Distills the core contribution and findings into a short, skimmable brief.",
		Icon:        "bolt",
		Category:    "summary",
		PromptName:  "quick-summarizer",
	},
	{
		ID:          "methodology-coach",
		Name:        "Methodology Coach",
		Description: "Focuses on study design, data, and analysis choices, and how to reproduce them.",
		Icon:        "ruler",
		Category:    "methods",
		PromptName:  "methodology-coach",
	},
	{
		ID:          "beginner-guide",
		Name:        "Beginner Guide",
		Description: "Explains the paper in plain language for readers new to the topic.",
		Icon:        "compass",
		Category:    "general",
		PromptName:  "beginner-guide",
	},
}
