package notifier

import (
	"fmt"
	"time"

	"watersafe/internal/models"

	"go.uber.org/zap"
)

// Message 一封待投递的邮件
type Message struct {
	From     string
	To       string
	Subject  string
	Body     string
	HTMLBody bool
}

// Mailer 外部邮件投递通道
type Mailer interface {
	Send(msg *Message) error
}

// Notifier 报警邮件通知器：组装邮件并提交到投递通道。
// 投递失败只记日志，绝不向上传播、绝不重试。
//
// 两条通道各自独立（凭证、收件人、触发条件均不同，不合并）：
//   - SendContaminationAlert：阈值触发，受去抖限制
//   - SendQualityAlert：提交方显式 alert=true 触发，不受去抖限制
type Notifier struct {
	mailer Mailer
	from   string
	to     string
	logger *zap.Logger
}

// NewNotifier 创建通知器
func NewNotifier(mailer Mailer, from, to string, logger *zap.Logger) *Notifier {
	return &Notifier{
		mailer: mailer,
		from:   from,
		to:     to,
		logger: logger,
	}
}

// SendContaminationAlert 阈值触发的污染报警（HTML 正文，不含溶解氧）
func (n *Notifier) SendContaminationAlert(r *models.Reading) {
	msg := &Message{
		From:     n.from,
		To:       n.to,
		Subject:  "🚨 Water Contamination Alert",
		HTMLBody: true,
		Body: fmt.Sprintf(`<h2>Alert: Water Quality Issue</h2>
<p>Detected unsafe readings:</p>
<ul>
  <li><strong>pH:</strong> %g</li>
  <li><strong>Temperature:</strong> %g °C</li>
  <li><strong>Turbidity:</strong> %g NTU</li>
  <li><strong>TDS:</strong> %g ppm</li>
</ul>
<p>Timestamp: %s</p>`,
			r.PH, r.Temp, r.Turb, r.TDS,
			time.Now().Format("2006-01-02 15:04:05"),
		),
	}
	n.deliver("contamination", msg)
}

// SendQualityAlert 显式 alert=true 触发的水质报警（纯文本，含全部五项）
func (n *Notifier) SendQualityAlert(r *models.Reading) {
	msg := &Message{
		From:    fmt.Sprintf("\"Water Quality Monitor\" <%s>", n.from),
		To:      n.to,
		Subject: "🚨 Water Quality Alert",
		Body: fmt.Sprintf(`Unsafe water detected!

Sensor values:
- pH: %g
- Temperature: %g °C
- Turbidity: %g NTU
- TDS: %g ppm
- DO: %g mg/L

Please check the dashboard immediately.`,
			r.PH, r.Temp, r.Turb, r.TDS, r.DO,
		),
	}
	n.deliver("quality", msg)
}

// deliver 提交邮件，失败只记日志
func (n *Notifier) deliver(kind string, msg *Message) {
	if err := n.mailer.Send(msg); err != nil {
		n.logger.Error("Email alert failed",
			zap.String("kind", kind),
			zap.String("to", msg.To),
			zap.Error(err),
		)
		return
	}
	n.logger.Info("Email alert sent",
		zap.String("kind", kind),
		zap.String("to", msg.To),
	)
}
