package registry

import (
	"bufio"
	"fmt"
	"strings"
)

// field is one "Name: value" entry of a control-file paragraph, with folded
// continuation lines already joined.
type field struct {
	Name  string
	Value string
}

// paragraph is one blank-line-separated stanza of a control file, fields in
// declaration order.
type paragraph struct {
	Fields []field
}

// Get returns the value of the named field, case-insensitively.
func (p *paragraph) Get(name string) (string, bool) {
	for _, f := range p.Fields {
		if strings.EqualFold(f.Name, name) {
			return f.Value, true
		}
	}
	return "", false
}

// parseParagraphs splits RFC-822-style control data into paragraphs. A line
// starting with space or tab continues the previous field; '#' lines are
// comments; blank lines separate paragraphs.
func parseParagraphs(data string) ([]paragraph, error) {
	var (
		paras   []paragraph
		current paragraph
		lineNo  int
	)

	flush := func() {
		if len(current.Fields) > 0 {
			paras = append(paras, current)
			current = paragraph{}
		}
	}

	scanner := bufio.NewScanner(strings.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		switch {
		case strings.TrimSpace(line) == "":
			flush()
		case strings.HasPrefix(line, "#"):
			// comment
		case line[0] == ' ' || line[0] == '\t':
			if len(current.Fields) == 0 {
				return nil, fmt.Errorf("line %d: continuation line outside a field", lineNo)
			}
			last := &current.Fields[len(current.Fields)-1]
			last.Value = strings.TrimSpace(last.Value + " " + strings.TrimSpace(line))
		default:
			name, value, ok := strings.Cut(line, ":")
			if !ok {
				return nil, fmt.Errorf("line %d: malformed field %q", lineNo, line)
			}
			current.Fields = append(current.Fields, field{
				Name:  strings.TrimSpace(name),
				Value: strings.TrimSpace(value),
			})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()

	return paras, nil
}
