package errprocess

import (
	"errors"

	"chat_relay_service/pkg/logger"
)

// relay 錯誤分類,全部可恢復,只回報給發起的 session
var (
	// ErrRoomNotFound join 指定了不存在的房間
	ErrRoomNotFound = errors.New("room not found")
	// ErrNotJoined 尚未加入任何房間就 publish
	ErrNotJoined = errors.New("not joined any room")
	// ErrEmptyContent 內容 trim 後為空
	ErrEmptyContent = errors.New("empty content")
	// ErrUnknownSender session 尚未綁定 participant
	ErrUnknownSender = errors.New("unknown sender")
	// ErrParticipantNotFound 目錄查無此 participant
	ErrParticipantNotFound = errors.New("participant not found")
)

// Set set err info
func Set(errMsg string) error {
	logger.Log.Error(errMsg)
	return errors.New(errMsg)
}
