// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

// Prompts used by the scanner. Parameter keys are listed with each prompt.

// DiscoveryPrompt analyzes one chunk against the findings gathered so far.
// Keys: text, existing_findings, max_mutations.
var DiscoveryPrompt = NewPrompt("discovery", `You are an expert research analyzer. Analyze the text and extract meaningful research findings that represent significant academic contributions and discoveries.

Guidelines:
- Don't add or update more than {{.max_mutations}} findings in total.
- Focus exclusively on research insights, theoretical developments, and empirical results.
- Exclude implementation details, institutional information, or other non-research specifics.
- Avoid adding umbrella findings that encompass multiple insights.
- Prefer refining existing findings over creating new ones.
- Each finding must be supported by the given text; do not infer or fabricate.
- Only reference existing findings by the ids listed below.
- Report paper metadata (title, authors, publication date, abstract) only when the text states it.

Text:
` + "```" + `
{{.text}}
` + "```" + `

Existing findings:
` + "```" + `
{{.existing_findings}}
` + "```" + `

{{.format_instructions}}
`)

// FindingCreationPrompt writes a new finding from a chunk.
// Keys: text, title, description.
var FindingCreationPrompt = NewPrompt("finding_creation", `You are an expert research analyzer. Create a new finding from the given text.

Guidelines:
- Avoid returning LaTeX or code snippets; provide explanatory plain text instead.
- The summary and methodology must be clear, concise, and tightly related to the title and subject of the finding.

Title of the new finding:
` + "```" + `
{{.title}}
` + "```" + `

Subject of the new finding:
` + "```" + `
{{.description}}
` + "```" + `

Create the finding from:
` + "```" + `
{{.text}}
` + "```" + `

{{.format_instructions}}
`)

// FindingUpdatePrompt amends an existing finding with new information.
// Keys: finding, text, what_to_update.
var FindingUpdatePrompt = NewPrompt("finding_update", `You are an expert research analyzer. Update an existing finding with new information, limited to what the update is about.

Guidelines:
- Change a field only where the new information improves it; leave a field empty to keep it as is.
- Avoid returning LaTeX or code snippets; provide explanatory plain text instead.

Current finding:
` + "```" + `
{{.finding}}
` + "```" + `

New information:
` + "```" + `
{{.text}}
` + "```" + `

What to update:
` + "```" + `
{{.what_to_update}}
` + "```" + `

{{.format_instructions}}
`)

// ConsolidationPrompt merges and deduplicates all findings of a paper.
// Keys: findings.
var ConsolidationPrompt = NewPrompt("findings_consolidation", `You are a highly skilled research assistant consolidating academic findings. Identify and synthesize the key research contributions, focusing on novel discoveries, methodological advances, and theoretical developments.

Guidelines:
- Merge related findings while preserving their distinct academic contributions.
- Never return more findings than you were given.
- Exclude implementation details and non-research information such as institutional details.
- Keep statistical significance and empirical evidence where present.
- Attach a few main keywords to every finding.

Input findings:
{{.findings}}

{{.format_instructions}}
`)
