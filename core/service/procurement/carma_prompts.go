package procurement

const extractSystemPrompt = "You are an AI that extracts structured procurement data from construction emails. " +
	"Return ONLY valid JSON matching the schema with correct types."

const schemaExample = `{
  "project_name": "Penthouse A",
  "material_equipment": "Custom Casework",
  "lead_time_days": 40,
  "quantity": 5,
  "unit": "Sets",
  "vendor_name": "Elite Millwork",
  "delivery_date": "Pending",
  "status": "Pending",
  "remarks": "Awaiting vendor confirmation on delivery date.",
  "ai_analysis": {
    "impact": "Schedule Risk - Missing delivery dates may delay interior fit-out progress.",
    "recommendation": "Follow up with vendor immediately and escalate if no update within 2 days.",
    "confidence_score": 0.87
  }
}`

const extractUserPrompt = `Extract the following JSON from this email (subject and body). The project name will be either in subject or in email signature. If a value is not present, infer conservatively or set a reasonable placeholder like 'Pending' or 0. Ensure lead_time_days and quantity are numbers, confidence_score is a float 0-1.

SCHEMA EXAMPLE (match keys/types, not values):
%s

EMAIL SUBJECT: %s
EMAIL BODY: %s

Return JSON only. No markdown.`

const analyzeSystemPrompt = `You are an AI Procurement Data Analyst specializing in construction project procurement.
Analyze vendor records from Excel files and classify their completeness.
Think step-by-step, but output only valid JSON matching the schema.`

const analyzeUserPrompt = `PROCUREMENT DATA FROM EXCEL FILES:
%s

TASK:
1. Analyze each vendor record from the Excel data
2. Classify completeness as: Complete, Partial, or Incomplete
3. Identify missing fields for each vendor
4. Provide remarks explaining the classification
5. Return summary statistics

EXAMPLE OUTPUT:
{
  "vendors": [
    {
      "vendor_name": "ABC Electrical",
      "completeness": "Complete",
      "missing_fields": [],
      "remarks": "All required fields filled correctly."
    },
    {
      "vendor_name": "Summit HVAC",
      "completeness": "Partial",
      "missing_fields": ["Delivery Date", "Lead Time"],
      "remarks": "Missing critical delivery information for 2 items."
    },
    {
      "vendor_name": "Elite Millwork",
      "completeness": "Incomplete",
      "missing_fields": ["Item Description", "Lead Time", "Status", "Contact"],
      "remarks": "Incomplete record - missing multiple critical fields."
    }
  ],
  "ai_metadata": {
    "total_vendors": 3,
    "complete": 1,
    "partial": 1,
    "incomplete": 1,
    "confidence_score": 0.91
  }
}

NOW ANALYZE THE PROVIDED DATA AND OUTPUT JSON:`
