package ogpage

// CaseStudies alimenta /api/og/case-study/{slug}; redireciona via script.
var CaseStudies = Table{
	Entries: map[string]Meta{
		"retail-demand-forecasting": {
			Title:       "Demand forecasting for a regional retailer",
			Description: "How a 40-store retailer cut stock-outs by a third with a lightweight forecasting pipeline.",
			Image:       "/og/case-studies/retail-demand-forecasting.jpg",
		},
		"support-triage-assistant": {
			Title:       "An AI triage assistant for customer support",
			Description: "Routing thousands of weekly tickets to the right team in seconds, with humans in the loop.",
			Image:       "/og/case-studies/support-triage-assistant.jpg",
		},
		"document-intake-automation": {
			Title:       "Automating document intake for a logistics firm",
			Description: "From scanned paperwork to structured records without re-keying.",
			Image:       "/og/case-studies/document-intake-automation.jpg",
		},
	},
	Fallback: Meta{
		Title:       "Case Studies",
		Description: "Practical AI projects we have shipped with small and mid-sized businesses.",
		Image:       "/og/default.jpg",
	},
}

// Journal alimenta /api/og/journal/{slug}; redireciona via meta refresh.
var Journal = Table{
	Entries: map[string]Meta{
		"where-to-start-with-ai": {
			Title:       "Where to start with AI in a small business",
			Description: "A short checklist for picking a first project that pays for itself.",
			Image:       "/og/journal/where-to-start-with-ai.jpg",
		},
		"readiness-assessment-explained": {
			Title:       "What the AI readiness score actually measures",
			Description: "The questions behind the assessment and how to read your tier.",
			Image:       "/og/journal/readiness-assessment-explained.jpg",
		},
	},
	Fallback: Meta{
		Title:       "Journal",
		Description: "Notes on applied AI for growing businesses.",
		Image:       "/og/default.jpg",
	},
}
