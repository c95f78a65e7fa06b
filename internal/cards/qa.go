package cards

import (
	"strings"
)

// QAPair is one study card.
type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// LineKind classifies one line of model output.
type LineKind int

const (
	LineBlank LineKind = iota
	LineQuestion
	LineAnswer
	LineContinuation
)

var (
	questionPrefixes = []string{"Q:", "问:"}
	answerPrefixes   = []string{"A:", "答:"}
)

// Classify trims line and reports its kind. For question and answer lines
// rest is the trimmed text after the marker; otherwise rest is the trimmed line.
func Classify(line string) (kind LineKind, rest string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return LineBlank, ""
	}
	if r, ok := cutAny(line, questionPrefixes); ok {
		return LineQuestion, r
	}
	if r, ok := cutAny(line, answerPrefixes); ok {
		return LineAnswer, r
	}
	return LineContinuation, line
}

func cutAny(line string, prefixes []string) (string, bool) {
	for _, p := range prefixes {
		if r, ok := strings.CutPrefix(line, p); ok {
			return strings.TrimSpace(r), true
		}
	}
	return "", false
}

// Parse reads "Q: ..." / "A: ..." blocks from free text. Lines after an
// answer marker continue the answer until the next question. A pair is only
// emitted once it has both a question and answer text; text before the first
// question is ignored.
//
// A second answer marker under the same question restarts the answer, dropping
// what was collected so far.
func Parse(text string) []QAPair {
	var (
		pairs    []QAPair
		question string
		answer   []string
	)

	flush := func() {
		if question == "" || len(answer) == 0 {
			return
		}
		a := strings.TrimSpace(strings.Join(answer, "\n"))
		if a == "" {
			return
		}
		pairs = append(pairs, QAPair{Question: question, Answer: a})
	}

	for _, line := range strings.Split(text, "\n") {
		kind, rest := Classify(line)
		switch kind {
		case LineBlank:
			continue
		case LineQuestion:
			flush()
			question = rest
			answer = nil
		case LineAnswer:
			answer = []string{rest}
		case LineContinuation:
			if question != "" {
				answer = append(answer, rest)
			}
		}
	}
	flush()

	return pairs
}

// Format renders pairs in the form Parse reads, separated by blank lines.
func Format(pairs []QAPair) string {
	var sb strings.Builder
	for i, p := range pairs {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("Q: ")
		sb.WriteString(p.Question)
		sb.WriteString("\nA: ")
		sb.WriteString(p.Answer)
		sb.WriteString("\n")
	}
	return sb.String()
}
