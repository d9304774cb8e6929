package evaluator

import "fmt"

const systemPrompt = `You review coding challenge solutions for a spaced repetition tool.
Grade each solution on three criteria, each from 0 to 3:
1. **Correctness**: does it produce the right results, including edge cases?
2. **Clarity**: is the code readable and well structured?
3. **Efficiency**: are its time and space complexity reasonable?

Answer in this format:
- Correctness: [score]/3 - [short reason]
- Clarity: [score]/3 - [short reason]
- Efficiency: [score]/3 - [short reason]

**Score: [average]/3**

Then explain how the solution could be improved. Be accurate rather than encouraging.`

func evaluatePrompt(title, description, solution string) string {
	return fmt.Sprintf(`Please evaluate my solution to this challenge.

Challenge: %s
%s

Solution:
%s

Grade correctness, clarity and efficiency from 0 to 3 and give the average as the Score.`, title, description, solution)
}

func disputePrompt(reason string) string {
	return fmt.Sprintf(`I disagree with your evaluation. My reasoning:

%s

Please reconsider the grade in light of this.`, reason)
}

func refactorPrompt(solution string) string {
	return fmt.Sprintf(`I refactored my solution based on your feedback. The updated code:

%s

Please evaluate it again.`, solution)
}
