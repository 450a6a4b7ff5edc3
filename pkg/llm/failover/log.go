package failover

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"hkexplorer/pkg/llm"
)

const logRule = "--------------------------------------------------------------------------------"

// callLog appends one entry per generator call to a plain text file.
// A nil callLog records nothing.
type callLog struct {
	path string
	mu   sync.Mutex
}

// record writes a failure as a single line and a success with the prompt
// (catalog lines shortened) and the wrapped response.
func (l *callLog) record(provider, profile, prompt, response string, err error) {
	if l == nil {
		return
	}

	stamp := time.Now().Format("2006-01-02 15:04:05")
	head := fmt.Sprintf("[%s][%s]", stamp, strings.ToUpper(provider))

	var entry string
	if err != nil {
		entry = fmt.Sprintf("%s ERROR: %s - %v\n%s\n", head, profile, err, logRule)
	} else {
		entry = fmt.Sprintf("%s PROMPT: %s\nPROMPT_TEXT:\n%s\n\nRESPONSE:\n%s\n%s\n",
			head, profile, llm.TruncateCatalog(prompt, 80), llm.WordWrap(response, 80), logRule)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return
	}
	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer file.Close()
	_, _ = file.WriteString(entry)
}
