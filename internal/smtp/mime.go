package smtp

import (
	"bytes"
	"fmt"

	"github.com/jhillyerd/enmime"
)

// ParsedEmail 表示解析后的邮件内容。
type ParsedEmail struct {
	Subject string
	From    string
	To      string
	Text    string
	HTML    string
}

// ParseEmail 解析原始邮件，提取头部和正文。
//
// MIME 解码（multipart、quoted-printable、base64、各类字符集）
// 全部交给 enmime 处理。
func ParseEmail(rawEmail []byte) (*ParsedEmail, error) {
	envelope, err := enmime.ReadEnvelope(bytes.NewReader(rawEmail))
	if err != nil {
		return nil, fmt.Errorf("parse mail: %w", err)
	}

	return &ParsedEmail{
		Subject: envelope.GetHeader("Subject"),
		From:    envelope.GetHeader("From"),
		To:      envelope.GetHeader("To"),
		Text:    envelope.Text,
		HTML:    envelope.HTML,
	}, nil
}
