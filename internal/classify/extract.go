package classify

import (
	"regexp"
	"strings"
)

// BatchDelimiter separates questions in batch-mode model output.
const BatchDelimiter = "|||"

var questionSegmentRe = regexp.MustCompile(`[^?]*\?`)

// ExtractBatchQuestions splits batch-mode model output into up to
// desiredCount cleaned questions. It splits on the literal "|||" delimiter if
// present, otherwise extracts question-terminated segments. Candidates are
// trimmed, deduplicated (by normalized form), and guaranteed to be non-empty
// and '?'-terminated.
func ExtractBatchQuestions(rawText string, desiredCount int) []string {
	if desiredCount < 1 {
		return nil
	}

	var parts []string
	if strings.Contains(rawText, BatchDelimiter) {
		parts = strings.Split(rawText, BatchDelimiter)
	} else {
		parts = questionSegmentRe.FindAllString(rawText, -1)
	}

	var out []string
	seen := map[string]struct{}{}
	for _, p := range parts {
		q := Sanitize(p)
		if q == "" {
			continue
		}
		if !strings.HasSuffix(q, "?") {
			q += "?"
		}
		key := Normalize(q)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, q)
		if len(out) == desiredCount {
			break
		}
	}
	return out
}

// skillDictionary maps lowercased token forms to canonical display names.
// Scanned as whole tokens to avoid substring false positives ("git" inside
// "digital").
var skillDictionary = []struct{ token, display string }{
	{"go", "Go"}, {"golang", "Go"}, {"python", "Python"}, {"java", "Java"},
	{"javascript", "JavaScript"}, {"typescript", "TypeScript"},
	{"react", "React"}, {"node", "Node.js"}, {"node.js", "Node.js"},
	{"sql", "SQL"}, {"postgresql", "PostgreSQL"}, {"postgres", "PostgreSQL"},
	{"mysql", "MySQL"}, {"mongodb", "MongoDB"}, {"redis", "Redis"},
	{"kafka", "Kafka"}, {"rabbitmq", "RabbitMQ"}, {"docker", "Docker"},
	{"kubernetes", "Kubernetes"}, {"aws", "AWS"}, {"gcp", "GCP"},
	{"azure", "Azure"}, {"terraform", "Terraform"}, {"linux", "Linux"},
	{"git", "Git"}, {"rest", "REST"}, {"graphql", "GraphQL"},
	{"grpc", "gRPC"}, {"c++", "C++"}, {"c#", "C#"}, {"ruby", "Ruby"},
	{"php", "PHP"}, {"swift", "Swift"}, {"kotlin", "Kotlin"},
	{"html", "HTML"}, {"css", "CSS"},
}

const maxSkills = 5

var skillTokenRe = regexp.MustCompile(`[a-z0-9.+#]+`)

// ExtractRequiredSkills pulls up to five skills from a job prompt. It prefers
// an explicit "Required skills:" line (comma-separated); when that line is
// absent or reads "not specified", it falls back to scanning the text for
// common technology keywords.
func ExtractRequiredSkills(jobPrompt string) []string {
	for _, line := range strings.Split(jobPrompt, "\n") {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		if !strings.HasPrefix(lower, "required skills:") {
			continue
		}
		rest := strings.TrimSpace(trimmed[len("required skills:"):])
		if rest == "" || strings.EqualFold(rest, "not specified") {
			break
		}
		var out []string
		for _, s := range strings.Split(rest, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			out = append(out, s)
			if len(out) == maxSkills {
				break
			}
		}
		if len(out) > 0 {
			return out
		}
		break
	}
	return scanSkillDictionary(jobPrompt)
}

func scanSkillDictionary(text string) []string {
	tokens := map[string]struct{}{}
	for _, tok := range skillTokenRe.FindAllString(strings.ToLower(text), -1) {
		tokens[strings.Trim(tok, ".")] = struct{}{}
	}

	var out []string
	seen := map[string]struct{}{}
	for _, entry := range skillDictionary {
		if _, ok := tokens[entry.token]; !ok {
			continue
		}
		if _, dup := seen[entry.display]; dup {
			continue
		}
		seen[entry.display] = struct{}{}
		out = append(out, entry.display)
		if len(out) == maxSkills {
			break
		}
	}
	return out
}
