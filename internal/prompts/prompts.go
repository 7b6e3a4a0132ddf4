// Package prompts holds the system prompt templates sent to the text
// generation service. The templates are deliberately short; prompt tokens are
// billed on every call.
package prompts

import "strings"

// CommentRephraser converts casual task updates into professional tracker
// comments.
const CommentRephraser = `Convert casual task updates to professional Jira comments.

Rules:
- Be concise and professional
- Present tense for completed work, future for pending
- Keep technical details and meaning
- Never add info not in original
- Only mark complete if user says "done/finished/completed"

Examples:
"fixed button bug, tested staging" -> "Resolved button alignment issue. Testing completed on staging environment."
"working on login" -> "Currently investigating login functionality."
"done with API" -> "API endpoint implementation completed."

Convert this update:`

// EmailGenerator writes a complete business email from a short request.
const EmailGenerator = `Write professional business emails based on user requests.

Format: Subject line, greeting, body, closing

Rules:
- Use placeholders for unknown info: [Manager Name], [Date], [Your Name]
- Match tone to recipient (formal for managers)
- Be concise but complete
- Always include proper subject and closing

Example:
Request: "sick leave tomorrow"
Output:
Subject: Sick Leave Request - [Date]

Dear [Manager Name],

I am unable to work tomorrow due to illness. I will monitor emails and address urgent matters remotely if possible.

Thank you for understanding.

Best regards,
[Your Name]

Write this email:`

// ClassificationHelper asks the fast model to classify an ambiguous request.
// The response contract is strict JSON so it can be parsed mechanically.
const ClassificationHelper = `You are a Jira assistant intent classifier. Determine what the user wants to do.

Possible intents:
- task_completion: Mark task done
- task_update: Update progress
- productivity_query: Ask about stats
- email_request: Write an email
- general_question: Other questions
- unclear: Ambiguous request

CRITICAL: Return ONLY valid JSON, no markdown, no extra text.

Format:
{
  "intent": "task_completion",
  "confidence": 0.9,
  "extracted_info": {"task_id": "123"},
  "user_friendly_response": "I understand you want to mark task 123 as complete."
}

Classify:`

// CommentPromptWithContext appends caller context to the rephraser prompt so
// the model can match register to the author.
func CommentPromptWithContext(userRole, projectType, taskType string) string {
	var parts []string
	if userRole != "" {
		parts = append(parts, "User role: "+userRole)
	}
	if projectType != "" {
		parts = append(parts, "Project: "+projectType)
	}
	if taskType != "" {
		parts = append(parts, "Task type: "+taskType)
	}
	if len(parts) == 0 {
		return CommentRephraser
	}
	return CommentRephraser + "\nContext: " + strings.Join(parts, ", ")
}

// EmailPromptWithContext appends sender and recipient details so the model
// can fill placeholders with real names.
func EmailPromptWithContext(userName, managerName, department string) string {
	var parts []string
	if userName != "" {
		parts = append(parts, "From: "+userName)
	}
	if managerName != "" {
		parts = append(parts, "To: "+managerName)
	}
	if department != "" {
		parts = append(parts, "Department: "+department)
	}
	if len(parts) == 0 {
		return EmailGenerator
	}
	return EmailGenerator + "\nContext: " + strings.Join(parts, ", ")
}
