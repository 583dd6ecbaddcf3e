package service

import (
	"bytes"
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"mime"
	"path/filepath"

	"alienx-go/pkg/asr"
	"alienx-go/pkg/log"
)

// ObjectStore 定义了音频归档所需的最小对象存储接口。
type ObjectStore interface {
	Put(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
}

// SpeechService 定义了语音输入处理的接口。
type SpeechService interface {
	// Transcribe 归档音频并调用识别服务返回转写文本。
	// 识别不出内容时返回 asr.ErrUnintelligible。
	Transcribe(ctx context.Context, audio []byte, fileName string) (string, error)
}

type speechService struct {
	recognizer asr.Client
	archive    ObjectStore // 可为 nil，归档是尽力而为的
}

// NewSpeechService 创建一个新的 SpeechService 实例。
func NewSpeechService(recognizer asr.Client, archive ObjectStore) SpeechService {
	return &speechService{recognizer: recognizer, archive: archive}
}

// Transcribe 处理一段上传的音频。
// 归档失败只记录日志，不阻断识别；识别结果原样返回给编排层。
func (s *speechService) Transcribe(ctx context.Context, audio []byte, fileName string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("音频内容为空")
	}

	contentType := detectAudioMimeType(fileName)

	if s.archive != nil {
		objectName := audioObjectName(audio, fileName)
		if err := s.archive.Put(ctx, objectName, bytes.NewReader(audio), int64(len(audio)), contentType); err != nil {
			log.Warnf("归档音频到对象存储失败: object=%s, error: %v", objectName, err)
		}
	}

	return s.recognizer.Transcribe(ctx, bytes.NewReader(audio), contentType)
}

// audioObjectName 以内容 MD5 命名归档对象，重复上传天然去重。
func audioObjectName(audio []byte, fileName string) string {
	ext := filepath.Ext(fileName)
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("audio/%x%s", md5.Sum(audio), ext)
}

// detectAudioMimeType 根据文件扩展名判断 Content-Type。
func detectAudioMimeType(fileName string) string {
	ext := filepath.Ext(fileName)
	if ext == "" {
		return "application/octet-stream"
	}
	if mimeType := mime.TypeByExtension(ext); mimeType != "" {
		return mimeType
	}
	return "application/octet-stream"
}
