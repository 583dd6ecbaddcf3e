package handler

import (
	"errors"
	"io"
	"net/http"

	"alienx-go/internal/middleware"
	"alienx-go/internal/service"
	"alienx-go/pkg/asr"
	"alienx-go/pkg/log"

	"github.com/gin-gonic/gin"
)

const (
	msgNoAudioFile  = "No audio file found in the request."
	msgAudioUnclear = "Audio was unclear. I could not understand the contents."
	msgAudioError   = "An error occurred while processing the audio file."
)

// AudioHandler 负责处理语音问答请求。
type AudioHandler struct {
	speech    service.SpeechService
	assistant service.AssistantService
}

// NewAudioHandler 创建一个新的 AudioHandler 实例。
func NewAudioHandler(speech service.SpeechService, assistant service.AssistantService) *AudioHandler {
	return &AudioHandler{speech: speech, assistant: assistant}
}

// UploadAudio 处理一轮语音问答：转写后走与文本相同的编排链路。
// 识别不出内容是正常的业务结果，返回 200 与固定提示，而不是错误状态。
func (h *AudioHandler) UploadAudio(c *gin.Context) {
	fileHeader, err := c.FormFile("audio_file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"response": msgNoAudioFile, "lang": "en-US"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.Errorf("打开上传的音频文件失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"response": msgAudioError, "lang": "en-US"})
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		log.Errorf("读取上传的音频文件失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"response": msgAudioError, "lang": "en-US"})
		return
	}

	transcript, err := h.speech.Transcribe(c.Request.Context(), audio, fileHeader.Filename)
	if err != nil {
		if errors.Is(err, asr.ErrUnintelligible) {
			c.JSON(http.StatusOK, gin.H{"response": msgAudioUnclear, "lang": "en-US"})
			return
		}
		log.Errorf("音频转写失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"response": msgAudioError, "lang": "en-US"})
		return
	}

	sessionID := middleware.SessionID(c)
	result, err := h.assistant.HandleTurn(c.Request.Context(), sessionID, transcript, "")
	if err != nil {
		if errors.Is(err, service.ErrEmptyInput) {
			c.JSON(http.StatusOK, gin.H{"response": msgAudioUnclear, "lang": "en-US"})
			return
		}
		log.Errorf("处理语音问答失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"response": msgAudioError, "lang": "en-US"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"response": result.ResponseText, "lang": result.SpeechLang})
}
