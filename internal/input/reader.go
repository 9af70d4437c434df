package input

import (
	"bufio"
	"os"
	"strings"

	"github.com/rafabd1/Tendril/internal/config"
	"github.com/rafabd1/Tendril/internal/utils"
)

// Reader loads campaign term lists (keywords, cities) from files or stdin.
type Reader struct {
	logger utils.Logger
}

// NewReader creates a new input Reader.
func NewReader(logger utils.Logger) *Reader {
	if logger == nil {
		logger = &utils.NoOpLogger{}
	}
	return &Reader{logger: logger}
}

// ReadLinesFromFile loads terms from a file, one per line, ignoring blanks
// and comment lines.
func (r *Reader) ReadLinesFromFile(filePath string) ([]string, error) {
	lines, err := config.LoadLinesFromFile(filePath)
	if err != nil {
		return nil, err
	}
	r.logger.Debugf("Loaded %d entries from file '%s'", len(lines), filePath)
	return lines, nil
}

// ReadLinesFromStdin reads terms from standard input until EOF, ignoring
// blanks and comment lines.
func (r *Reader) ReadLinesFromStdin() ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	r.logger.Debugf("Loaded %d entries from stdin", len(lines))
	return lines, nil
}
