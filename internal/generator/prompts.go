package generator

import (
	"fmt"
	"strings"
)

const cloneSystemPrompt = "You are a helpful AI that creates high-quality clone questions for ACT Math practice. " +
	"You must structure your response exactly as requested with the Analysis, New Question, Answer, and Explanation sections."

const hintSystemPrompt = "You are a helpful math tutor. When given a math question, provide a hint that guides the student " +
	"toward the solution without giving away the answer. Use proper LaTeX notation within MathJax delimiters " +
	`(\( ... \) for inline math and \[ ... \] for display math) when writing mathematical expressions. ` +
	"Make your hints clear and encouraging."

const imageNote = "[This question includes an image. Keep the new question answerable from its text alone.]"

func clonePrompt(latex string, hasPhoto bool) string {
	body := latex
	if body == "" {
		body = "Image-based question"
	}
	var b strings.Builder
	b.WriteString("Please analyze and create a clone of this ACT Math question:\n\n")
	b.WriteString(body)
	b.WriteString("\n\n")
	if hasPhoto {
		b.WriteString(imageNote)
		b.WriteString("\n\n")
	}
	b.WriteString(`Please perform the following tasks:

1) Analyze the question as if you are a 17-year-old student. Think about why a student might choose each of the wrong answers.

2) Create a similar question with different values and/or context. The new question must follow these formatting rules:
   - Use \( ... \) for inline math and \[ ... \] for display math, with a space around each delimiter
   - Do NOT begin with a number (e.g., "9.") or with introductory text
   - Include the answer choices in the question text, one per line, as (A) through (E)

3) Explain how to solve the new question the way an average 17-year-old student would explain it to a peer, using the same math formatting.

Structure your response exactly as follows:

**Analysis:**

[Your analysis here]

**New Question:**

[Complete question including the multiple choice answers]

**Answer:**

[Just the letter of the correct answer (A, B, C, D, or E)]

**Explanation:**

[Your explanation here]`)
	return b.String()
}

func hintPrompt(question string) string {
	return "Please provide a hint for this math question: " + question
}

func multiHintPrompt(testNumber, questionNumber, question string) string {
	return fmt.Sprintf(`For this ACT Math question (Test %s, Question %s):

%s

Please provide a helpful hint that guides the student toward the solution without giving away the answer directly. The hint should:
1. Point out key information or concepts needed
2. Suggest a problem-solving approach
3. Help identify what mathematical principles to apply
4. NOT reveal the actual answer or solution steps`, testNumber, questionNumber, question)
}

func explanationPrompt(testNumber, questionNumber, question string) string {
	return fmt.Sprintf(`For this ACT Math question (Test %s, Question %s):

%s

Please provide a detailed explanation of how to solve this problem. The explanation should:
1. Break down the key information given in the question
2. Explain the mathematical concepts and principles involved
3. Walk through the solution step by step
4. Explain why each step is necessary
5. Conclude with the final answer and verify it makes sense

Format your response using LaTeX math notation where appropriate, using \( \) for inline math and \[ \] for display math.`,
		testNumber, questionNumber, question)
}
