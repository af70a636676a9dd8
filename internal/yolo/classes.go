package yolo

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Classes maps class IDs to names. Unknown IDs render as "class_<id>".
type Classes []string

// ParseClasses reads one class name per line, skipping blank lines.
func ParseClasses(r io.Reader) (Classes, error) {
	var names Classes
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if name := strings.TrimSpace(scanner.Text()); name != "" {
			names = append(names, name)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read class names: %w", err)
	}
	return names, nil
}

// Name returns the label for id.
func (c Classes) Name(id int) string {
	if id >= 0 && id < len(c) {
		return c[id]
	}
	return fmt.Sprintf("class_%d", id)
}
