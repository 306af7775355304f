package report

const systemPrompt = `You are an AI Project Manager Assistant.
You analyze construction project emails and generate weekly progress reports.
You must reason step-by-step internally (chain-of-thought),
but output only the final structured JSON strictly following the schema.`

const reportSchema = `{
  "project_name": "string",
  "week_range": "string",
  "progress_highlights": ["string"],
  "active_issues": ["string"],
  "subcontractor_performance": {
    "responsive": ["string"],
    "attention_needed": ["string"],
    "average_response_time_hours": number
  },
  "schedule_status": {
    "overall": "On Track | Behind | Ahead",
    "critical_path_float_days": number,
    "substantial_completion_date": "YYYY-MM-DD"
  },
  "upcoming_milestones": ["string"],
  "budget_and_changes": {
    "change_orders_this_week": number,
    "contingency_remaining_percent": number
  },
  "ai_summary_metadata": {
    "confidence_score": number (0-1),
    "key_tags": ["string"],
    "generated_at": "YYYY-MM-DDTHH:MM:SSZ"
  }
}`

const fewShotExample = `EXAMPLE 1 OUTPUT:
{
  "project_name": "Skyline Tower",
  "week_range": "Oct 10 - Oct 15, 2025",
  "progress_highlights": [
    "Concrete slab pour for Level 5 completed on schedule.",
    "Window frame installation began on north facade."
  ],
  "active_issues": [
    "HVAC duct delay reported due to late shipment."
  ],
  "subcontractor_performance": {
    "responsive": ["ABC Electrical"],
    "attention_needed": ["HVAC Solutions"],
    "average_response_time_hours": 8
  },
  "schedule_status": {
    "overall": "Slightly Behind",
    "critical_path_float_days": -1,
    "substantial_completion_date": "2026-02-12"
  },
  "upcoming_milestones": [
    "Oct 18: Waterproofing inspection",
    "Oct 20: Interior wall framing Level 6"
  ],
  "budget_and_changes": {
    "change_orders_this_week": 1,
    "contingency_remaining_percent": 4.8
  },
  "ai_summary_metadata": {
    "confidence_score": 0.91,
    "key_tags": ["schedule", "delay", "progress"],
    "generated_at": "2025-10-15T17:30:00Z"
  }
}`

const userPrompt = `PROJECT: %[1]s
DATE RANGE: %[2]s - %[3]s

EMAIL DATA:
%[4]s

TASK:
1. Identify key progress updates from the emails.
2. Summarize active issues or risks mentioned.
3. Evaluate subcontractor performance based on email response patterns.
4. Assess schedule and budget status from email communications.
5. Predict upcoming milestones based on current progress.
6. Return the result strictly in the JSON schema below.

%[5]s

NOW ANALYZE AND OUTPUT JSON FOR PROJECT: %[1]s
JSON SCHEMA:
%[6]s
`
