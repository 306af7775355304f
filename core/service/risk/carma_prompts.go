package risk

const systemPrompt = `You are an AI analyst that reviews construction project email threads and identifies communication patterns, responsiveness issues, and schedule risks.

Think step-by-step internally but output only valid JSON matching the schema provided. Do not include explanations or reasoning in your response.`

const fewShotPrompt = `You will receive a single email thread as an array of objects. Each object has: id, from, to, subject, date, snippet, body.

TASK:
1. Group all related emails.
2. Determine if follow-up behavior exists (repeated requests from same sender).
3. Check if there is any reply from the recipient.
4. Infer project context and risk level.
5. Output structured JSON ONLY matching the schema below.

FEW-SHOT EXAMPLES:

EXAMPLE 1 INPUT:
[
  {"from":"pm@builder.com","subject":"RFI #205 - Ceiling Type Confirmation","date":"2025-09-10 10:00","body":"Please confirm ceiling type for Corridor A."},
  {"from":"architect@consultant.com","subject":"Re: RFI #205 - Ceiling Type Confirmation","date":"2025-09-11 12:00","body":"Confirmed: ACT ceiling as per Section 095123."}
]

EXAMPLE 1 OUTPUT:
{
  "thread_subject": "RFI #205 - Ceiling Type Confirmation",
  "project_guess": "Corridor A",
  "participants": {
    "from_domain": "builder.com",
    "to_domain": "consultant.com",
    "senders": ["pm@builder.com"],
    "receivers": ["architect@consultant.com"]
  },
  "counts": { "total_emails": 2, "follow_up_count": 1, "unanswered_emails": 0 },
  "timeline": { "first_email_date": "2025-09-10", "last_email_date": "2025-09-11", "days_between_first_and_last": 1 },
  "response_detected": true,
  "issue_detected": "RFI answered promptly",
  "impact_area": "Design Clarification",
  "risk_level": "LOW",
  "reason": "Consultant responded within 1 day.",
  "recommended_action": "Close RFI in project log.",
  "kpis": { "avg_gap_days": 1.0, "last_gap_days": 1.0 }
}

EXAMPLE 2 INPUT:
[
  {"from":"sarah.chen@carma-build.com","subject":"Ship Date Needed for Penthouse A Custom Casework","date":"2025-10-18 10:42","body":"Requesting ship date for Penthouse A cabinetry."},
  {"from":"sarah.chen@carma-build.com","subject":"Follow-Up - Ship Date for Penthouse A Casework","date":"2025-10-21 09:05","body":"Following up on ship date request."},
  {"from":"sarah.chen@carma-build.com","subject":"URGENT - Penthouse A Casework Ship Date Required","date":"2025-10-24 08:14","body":"Third request. Coordination meeting on Friday; need confirmation."}
]

EXAMPLE 2 OUTPUT:
{
  "thread_subject": "Ship Date Needed for Penthouse A Custom Casework",
  "project_guess": "Penthouse A",
  "participants": {
    "from_domain": "carma-build.com",
    "to_domain": "elitemillwork.com",
    "senders": ["sarah.chen@carma-build.com"],
    "receivers": []
  },
  "counts": { "total_emails": 3, "follow_up_count": 2, "unanswered_emails": 3 },
  "timeline": { "first_email_date": "2025-10-18", "last_email_date": "2025-10-24", "days_between_first_and_last": 6 },
  "response_detected": false,
  "issue_detected": "Non-responsive subcontractor",
  "impact_area": "Procurement/Schedule",
  "risk_level": "HIGH",
  "reason": "Multiple follow-ups with no reply from vendor; possible delay.",
  "recommended_action": "Escalate to vendor leadership and PM; mark procurement risk.",
  "kpis": { "avg_gap_days": 3.0, "last_gap_days": 3.0 }
}

MEASURED METRICS FOR THIS THREAD (computed from headers, treat as authoritative):
%s

NOW ANALYZE THIS THREAD:
%s`
