package extract

import (
	"fmt"
	"strings"
)

// SystemPrompt frames the model as a regulatory compliance analyst.
const SystemPrompt = `You are an expert regulatory compliance analyst specializing in financial regulations.

Your task is to extract specific, actionable compliance requirements from regulatory documents.

EXPERTISE AREAS:
- Banking regulations (Basel III, CRD IV, etc.)
- Risk management frameworks
- Capital adequacy requirements
- Reporting and disclosure obligations
- Governance and operational requirements

EXTRACTION PRINCIPLES:
1. Focus ONLY on explicit obligations (must, shall, required, etc.)
2. Distinguish between mandatory requirements and recommendations
3. Preserve exact regulatory language when possible
4. Identify specific compliance actions, not general descriptions
5. Extract quantitative thresholds, deadlines, and specific criteria

Always respond with valid JSON only. Be precise and comprehensive.`

// BuildExtractionPrompt creates the per-chunk extraction prompt, adapting
// the opening instruction to the chunk's measured quality.
func BuildExtractionPrompt(content, chunkID string, qa QualityAssessment) string {
	var focus string
	switch {
	case qa.RegulatoryIndicators > 10:
		focus = "This appears to be regulatory-dense content. Pay special attention to compliance obligations."
	case qa.WordCount < 100:
		focus = "This is a short text segment. Extract any explicit requirements, even brief ones."
	default:
		focus = "Analyze this content thoroughly for any compliance requirements."
	}

	var sb strings.Builder
	sb.WriteString(focus)
	sb.WriteString("\n\nREGULATORY TEXT:\n")
	sb.WriteString(content)
	sb.WriteString("\n\nEXTRACTION TASK:\n")
	sb.WriteString("Extract all specific compliance requirements that financial institutions must follow.\n\n")
	sb.WriteString(`MANDATORY INDICATORS TO LOOK FOR:
- "must", "shall", "required to", "obligated to", "mandatory"
- "prohibited from", "shall not", "must not", "forbidden"
- Specific deadlines, thresholds, or quantitative requirements
- Reporting obligations and submission requirements
- Risk management and control requirements

`)
	sb.WriteString(fmt.Sprintf(`JSON RESPONSE FORMAT:
{
    "chunk_id": %q,
    "requirements": [
        {
            "id": "REQ001",
            "requirement": "Complete exact requirement text with all details",
            "category": "risk_management|capital_adequacy|reporting|governance|operational|liquidity|credit_risk|market_risk|compliance",
            "priority": "high|medium|low",
            "reference": "Specific section/paragraph/article reference",
            "keywords": ["relevant", "keywords", "extracted"],
            "requirement_type": "mandatory|prohibitive|conditional|quantitative|procedural",
            "deadline": "If any deadline mentioned",
            "applies_to": "Who this requirement applies to"
        }
    ]
}

`, chunkID))
	sb.WriteString(`CRITICAL INSTRUCTIONS:
- Respond with ONLY the JSON object
- No markdown, no explanations, no additional text
- Include ALL explicit requirements found
- If no requirements found, return empty requirements array
- Ensure all JSON is properly escaped and formatted`)

	return sb.String()
}
