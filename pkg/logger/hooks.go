package logger

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
)

// lineFormatter renders "[time] [LEVEL] [prefix]: message k=v".
type lineFormatter struct {
	colors bool
}

func levelOf(entry *logrus.Entry) LogLevel {
	if lvl, ok := entry.Data[levelKey].(LogLevel); ok {
		return lvl
	}
	switch entry.Level {
	case logrus.PanicLevel, logrus.FatalLevel:
		return LevelCritical
	case logrus.ErrorLevel:
		return LevelError
	case logrus.WarnLevel:
		return LevelWarn
	case logrus.InfoLevel:
		return LevelInfo
	case logrus.DebugLevel:
		return LevelDebug
	default:
		return LevelSystem
	}
}

func (f *lineFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	level := levelOf(entry)
	prefix, _ := entry.Data[prefixKey].(string)

	var b bytes.Buffer
	b.WriteString("[" + entry.Time.Format("2006-01-02 15:04:05") + "] ")
	if f.colors {
		b.WriteString("[" + level.Color() + level.String() + colorReset + "]")
	} else {
		b.WriteString("[" + level.String() + "]")
	}
	fmt.Fprintf(&b, " [%s]: %s", prefix, entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		if k == levelKey || k == prefixKey {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// fileHook appends every entry to the combined log and errors to the error log.
type fileHook struct {
	mu        sync.Mutex
	formatter *lineFormatter
	combined  *os.File
	errors    *os.File
}

func newFileHook(combinedPath, errorPath string) (*fileHook, error) {
	combined, err := os.OpenFile(combinedPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	errFile, err := os.OpenFile(errorPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		combined.Close()
		return nil, err
	}
	return &fileHook{
		formatter: &lineFormatter{},
		combined:  combined,
		errors:    errFile,
	}, nil
}

func (h *fileHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *fileHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, err := h.combined.Write(line); err != nil {
		return err
	}
	if levelOf(entry) <= LevelError {
		if _, err := h.errors.Write(line); err != nil {
			return err
		}
	}
	return nil
}

func (h *fileHook) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.combined.Close()
	h.errors.Close()
}

// webhookHook forwards entries to Discord webhooks as embeds.
type webhookHook struct {
	errorURL string
	logsURL  string
	client   *http.Client
}

func newWebhookHook(errorURL, logsURL string) *webhookHook {
	return &webhookHook{
		errorURL: errorURL,
		logsURL:  logsURL,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

func (h *webhookHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *webhookHook) Fire(entry *logrus.Entry) error {
	level := levelOf(entry)
	url := h.logsURL
	if level <= LevelError {
		url = h.errorURL
	}
	if url == "" {
		return nil
	}

	prefix, _ := entry.Data[prefixKey].(string)
	go h.send(url, level, entry.Message, prefix, entry.Time)
	return nil
}

func (h *webhookHook) send(url string, level LogLevel, message, prefix string, at time.Time) {
	payload := map[string]interface{}{
		"embeds": []interface{}{
			map[string]interface{}{
				"title":       fmt.Sprintf("[%s] %s", level.String(), prefix),
				"description": fmt.Sprintf("```%s```", message),
				"color":       level.DiscordColor(),
				"timestamp":   at.Format(time.RFC3339),
				"footer": map[string]string{
					"text": "WarnBot",
				},
			},
		},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return
	}
	resp.Body.Close()
}
