package services

import (
	"encoding/json"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/Thisisbailin/Script2Video-sub002/internal/models"
	"github.com/oklog/ulid/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Audit outcome statuses.
const (
	AuditOK       = "ok"
	AuditConflict = "conflict"
	AuditInvalid  = "invalid"
	AuditDenied   = "denied"
	AuditError    = "error"
)

// Auditor writes one audit row per request outcome. Writes are best-effort:
// a failed audit insert is logged and never fails the request it describes.
type Auditor struct {
	db *gorm.DB

	mu      sync.Mutex
	entropy *rand.Rand
}

func NewAuditor(db *gorm.DB) *Auditor {
	return &Auditor{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Record writes an audit entry. Detail may be nil.
func (a *Auditor) Record(userID, action, status string, detail map[string]interface{}) {
	entry := models.AuditEntry{
		EntryID:   a.newEntryID(),
		UserID:    userID,
		Action:    action,
		Status:    status,
		CreatedAt: time.Now(),
	}
	if detail != nil {
		if raw, err := json.Marshal(detail); err == nil {
			entry.Detail = models.JSON{JSON: datatypes.JSON(raw)}
		}
	}
	if err := a.db.Create(&entry).Error; err != nil {
		log.Printf("audit write failed for user %s action %s: %v", userID, action, err)
	}
}

// newEntryID returns a lexically sortable id so audit rows order by insertion
// time without an extra index.
func (a *Auditor) newEntryID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), a.entropy).String()
}
