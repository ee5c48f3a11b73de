package p4

import (
	"bufio"
	"strings"
)

// Record is one tagged output record
type Record map[string]string

// ParseTagged parses -ztag output: records separated by blank lines, each
// field on a line of the form "... key value". Lines that do not start a
// field continue the value of the previous one.
func ParseTagged(output string) []Record {
	var records []Record
	var current Record
	var lastKey string

	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		if line == "" {
			if current != nil {
				records = append(records, current)
				current = nil
				lastKey = ""
			}
			continue
		}

		if rest, ok := strings.CutPrefix(line, "... "); ok {
			key, value, _ := strings.Cut(rest, " ")
			if current == nil {
				current = Record{}
			}
			current[key] = value
			lastKey = key
			continue
		}

		if current != nil && lastKey != "" {
			current[lastKey] += "\n" + line
		}
	}

	if current != nil {
		records = append(records, current)
	}
	return records
}
