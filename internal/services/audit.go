package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ian-seymour/gamma/internal/models"

	"github.com/mssola/user_agent"
	"gorm.io/gorm"
)

const (
	ActionRegister       = "REGISTER"
	ActionLogin          = "LOGIN"
	ActionLoginFailed    = "LOGIN_FAILED"
	ActionLogout         = "LOGOUT"
	ActionResetRequested = "PASSWORD_RESET_REQUEST"
	ActionPasswordReset  = "PASSWORD_RESET"
	ActionFavoriteAdd    = "ADD_FAVORITE"
	ActionFavoriteRemove = "REMOVE_FAVORITE"
	ActionAccountDeleted = "DELETE_ACCOUNT"
)

const auditBufferSize = 100

// AuditService records security relevant events off the request path. Entries
// are dropped when the buffer is full.
type AuditService struct {
	db      *gorm.DB
	logger  *slog.Logger
	entries chan models.AuditLog
}

func NewAuditService(db *gorm.DB, logger *slog.Logger) *AuditService {
	return &AuditService{
		db:      db,
		logger:  logger,
		entries: make(chan models.AuditLog, auditBufferSize),
	}
}

func (s *AuditService) Start(ctx context.Context) {
	s.logger.Info("Audit worker started")
	for {
		select {
		case entry := <-s.entries:
			s.write(entry)
		case <-ctx.Done():
			// Flush what is already queued.
			for {
				select {
				case entry := <-s.entries:
					s.write(entry)
				default:
					s.logger.Info("Audit worker stopping")
					return
				}
			}
		}
	}
}

func (s *AuditService) write(entry models.AuditLog) {
	if err := s.db.Create(&entry).Error; err != nil {
		s.logger.Error("Failed to write audit log", "action", entry.Action, "error", err)
	}
}

func (s *AuditService) LogAction(userID *uint, action, entityID string, details any, ip, userAgent string) {
	entry := models.AuditLog{
		UserID:    userID,
		Action:    action,
		EntityID:  entityID,
		IPAddress: ip,
		UserAgent: userAgent,
		Timestamp: time.Now(),
	}
	if details != nil {
		detailBytes, err := json.Marshal(details)
		if err != nil {
			s.logger.Warn("Audit details not serializable", "action", action, "error", err)
		} else {
			entry.Details = string(detailBytes)
		}
	}
	if userAgent != "" {
		entry.Browser, entry.OS, entry.DeviceType = describeUserAgent(userAgent)
	}

	select {
	case s.entries <- entry:
	default:
		s.logger.Warn("Audit channel full, dropping log", "action", action)
	}
}

func describeUserAgent(raw string) (browser, os, device string) {
	ua := user_agent.New(raw)
	browser, _ = ua.Browser()
	os = ua.OS()

	switch {
	case ua.Bot():
		device = "Bot"
	case ua.Mobile():
		device = "Mobile"
	default:
		device = "Desktop"
	}
	return browser, os, device
}
