package notifier

import (
	"context"
	"log"
	"os"

	"job-board/internal/model"
)

// LogNotifier 仅打印待推送的职位，适合开发阶段或未配置 SMTP 时使用。
type LogNotifier struct {
	logger *log.Logger
}

// NewLogNotifier 创建日志通知器，未提供 logger 时默认输出到标准输出。
func NewLogNotifier(logger *log.Logger) *LogNotifier {
	if logger == nil {
		logger = log.New(os.Stdout, "[notify] ", log.LstdFlags)
	}
	return &LogNotifier{logger: logger}
}

// Notify 逐条打印匹配到的职位信息。
func (n LogNotifier) Notify(ctx context.Context, recipient string, jobs []model.Job) error {
	for _, job := range jobs {
		n.logger.Printf("alert %s: job #%d %s", recipient, job.ID, job.Title)
	}
	return nil
}
