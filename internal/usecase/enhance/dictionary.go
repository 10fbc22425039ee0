package enhance

// Dictionary holds the rule-based correction and expansion tables.
type Dictionary struct {
	// Misspellings maps a known misspelling to its correction (exact match).
	Misspellings map[string]string
	// Synonyms maps a term or two-word phrase to closely related terms.
	Synonyms map[string][]string
	// Stopwords are dropped from query terms and never corrected.
	Stopwords map[string]struct{}
	// Greetings are conversational filler, handled like stopwords.
	Greetings map[string]struct{}
}

// DefaultDictionary returns the built-in tables for the idea corpus.
func DefaultDictionary() Dictionary {
	return Dictionary{
		Misspellings: map[string]string{
			"blokchain":      "blockchain",
			"blockchian":     "blockchain",
			"blockchan":      "blockchain",
			"finnance":       "finance",
			"finanace":       "finance",
			"machne":         "machine",
			"lerning":        "learning",
			"learing":        "learning",
			"artifical":      "artificial",
			"inteligence":    "intelligence",
			"intelligance":   "intelligence",
			"analytcs":       "analytics",
			"anaytics":       "analytics",
			"secuirty":       "security",
			"securty":        "security",
			"helthcare":      "healthcare",
			"healtcare":      "healthcare",
			"sustainabilty":  "sustainability",
			"sustainablity":  "sustainability",
			"retial":         "retail",
			"logistcs":       "logistics",
			"logisitics":     "logistics",
			"automaton":      "automation",
			"autmation":      "automation",
			"chatbott":       "chatbot",
			"recomendation":  "recommendation",
			"recommandation": "recommendation",
			"predicitve":     "predictive",
			"maintanance":    "maintenance",
			"maintainance":   "maintenance",
			"procurment":     "procurement",
			"invoise":        "invoice",
			"cusomer":        "customer",
			"custmer":        "customer",
		},
		Synonyms: map[string][]string{
			"blockchain":       {"distributed ledger", "smart contract", "crypto"},
			"finance":          {"banking", "fintech", "payments"},
			"banking":          {"finance", "fintech"},
			"payments":         {"transactions", "finance"},
			"ai":               {"artificial intelligence", "machine learning"},
			"ml":               {"machine learning"},
			"machine learning": {"ml", "ai", "predictive"},
			"genai":            {"generative ai", "llm"},
			"llm":              {"language model", "generative ai"},
			"chatbot":          {"assistant", "conversational"},
			"healthcare":       {"medical", "health", "patient"},
			"retail":           {"ecommerce", "shopping", "store"},
			"logistics":        {"supply chain", "shipping", "delivery"},
			"supply chain":     {"logistics", "procurement", "inventory"},
			"procurement":      {"purchasing", "sourcing", "supply chain"},
			"security":         {"cybersecurity", "privacy", "fraud"},
			"fraud":            {"anomaly", "security"},
			"sustainability":   {"green", "carbon", "energy"},
			"energy":           {"power", "sustainability"},
			"analytics":        {"data", "insights", "dashboard"},
			"automation":       {"workflow", "rpa"},
			"mobile":           {"app", "android", "ios"},
			"education":        {"learning", "training"},
			"hiring":           {"recruitment", "talent"},
			"customer":         {"client", "crm"},
			"maintenance":      {"predictive maintenance", "repair"},
			"invoice":          {"billing", "accounts payable"},
		},
		Stopwords: set(
			"the", "and", "for", "with", "that", "this", "from", "are", "was", "were",
			"about", "into", "using", "use", "any", "all", "some", "what", "which", "who",
			"how", "show", "find", "give", "list", "get", "can", "you", "our", "your",
			"idea", "ideas", "related", "based", "there",
		),
		Greetings: set("hello", "hey", "hiya", "thanks", "thank", "please", "greetings", "morning"),
	}
}

func set(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

func (d Dictionary) skip(token string) bool {
	if _, ok := d.Stopwords[token]; ok {
		return true
	}
	_, ok := d.Greetings[token]
	return ok
}
