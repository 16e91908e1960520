// services/quest_service.go - Quest activation, progress and completion
package services

import (
	"context"
	"fmt"
	"time"

	"zentro/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CompletedQuest is a quest instance completed by a RecordStatDelta call.
type CompletedQuest struct {
	Quest
	InstanceID  string    `json:"instance_id"`
	CompletedAt time.Time `json:"completed_at"`
	PayoutID    string    `json:"payout_id,omitempty"`
	Paid        bool      `json:"paid"`
}

// QuestUpdate lists what one operation changed.
type QuestUpdate struct {
	Completed []CompletedQuest `json:"completed"`
	Activated []string         `json:"activated"`
	Expired   []string         `json:"expired"`
}

// RequirementProgress is the progress toward one requirement of a quest.
type RequirementProgress struct {
	StatKey string  `json:"stat_key"`
	Current int64   `json:"current"`
	Target  int64   `json:"target"`
	Percent float64 `json:"percent"`
}

// ActiveQuest is a running quest instance with its progress.
type ActiveQuest struct {
	Quest
	InstanceID   string                `json:"instance_id"`
	StartedAt    time.Time             `json:"started_at"`
	ExpiresAt    *time.Time            `json:"expires_at,omitempty"`
	Requirements []RequirementProgress `json:"requirement_progress"`
	Percent      float64               `json:"percent"`
}

// QuestProgress is the quest state of one user.
type QuestProgress struct {
	Chapter   int              `json:"chapter"`
	Active    []ActiveQuest    `json:"active"`
	Completed []string         `json:"completed"`
	Titles    []string         `json:"titles"`
	Unlocks   []string         `json:"unlocks"`
	Stats     map[string]int64 `json:"stats"`
}

type QuestService struct {
	db           *gorm.DB
	payouts      *PayoutService
	achievements *AchievementService
	hub          *Hub
	catalog      []Quest
	byID         map[string]Quest
	maxChapter   int
	now          Clock
	log          zerolog.Logger
}

func NewQuestService(db *gorm.DB, payouts *PayoutService, hub *Hub, log zerolog.Logger) *QuestService {
	s := &QuestService{
		db:      db,
		payouts: payouts,
		hub:     hub,
		catalog: QuestCatalog(),
		now:     SystemClock,
		log:     log.With().Str("component", "quests").Logger(),
	}
	s.byID = make(map[string]Quest, len(s.catalog))
	for _, q := range s.catalog {
		s.byID[q.ID] = q
		if q.Chapter > s.maxChapter {
			s.maxChapter = q.Chapter
		}
	}
	return s
}

// SetAchievements makes quest completions count toward achievements.
func (s *QuestService) SetAchievements(a *AchievementService) {
	s.achievements = a
}

// SetClock replaces the clock.
func (s *QuestService) SetClock(c Clock) {
	s.now = c
}

// Catalog returns the quest definitions.
func (s *QuestService) Catalog() []Quest {
	return s.catalog
}

// Initialize activates the starting quests on the user's first touch and
// brings expiry and repeatable quests up to date.
func (s *QuestService) Initialize(ctx context.Context, userID string) (*QuestUpdate, error) {
	if userID == "" {
		return nil, fmt.Errorf("initialize quests: %w: user id is required", ErrInvalidInput)
	}
	update := &QuestUpdate{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stats, err := loadStats(tx, userID, models.StatScopeQuests)
		if err != nil {
			return err
		}
		return s.refreshTx(tx, userID, stats, s.now(), update)
	})
	if err != nil {
		return nil, storeErr("initialize quests", err)
	}
	s.afterUpdate(ctx, userID, update)
	return update, nil
}

// RecordStatDelta applies delta to statKey, then completes every active
// quest whose requirements are met and activates the quests they unlock.
func (s *QuestService) RecordStatDelta(ctx context.Context, userID, statKey string, delta int64) (*QuestUpdate, error) {
	if userID == "" || statKey == "" {
		return nil, fmt.Errorf("record quest stat: %w: user id and stat key are required", ErrInvalidInput)
	}

	update := &QuestUpdate{}
	var changed map[string]int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now()
		before, err := loadStats(tx, userID, models.StatScopeQuests)
		if err != nil {
			return err
		}
		// new repeatable runs start from the counters before this delta
		if err := s.refreshTx(tx, userID, before, now, update); err != nil {
			return err
		}

		changed, err = recordStat(tx, userID, models.StatScopeQuests, statKey, delta, now)
		if err != nil {
			return err
		}
		stats, err := loadStats(tx, userID, models.StatScopeQuests)
		if err != nil {
			return err
		}
		return s.evaluateTx(tx, userID, stats, now, update)
	})
	if err != nil {
		return nil, storeErr("record quest stat", err)
	}

	s.hub.Publish(Event{Type: EventStatsUpdated, UserID: userID, Data: map[string]interface{}{
		"scope": models.StatScopeQuests,
		"stats": changed,
	}})
	s.afterUpdate(ctx, userID, update)
	return update, nil
}

// StartQuest activates an available quest on request.
func (s *QuestService) StartQuest(ctx context.Context, userID, questID string) (*models.UserQuest, error) {
	q, ok := s.byID[questID]
	if !ok {
		return nil, fmt.Errorf("start quest %q: %w", questID, ErrNotFound)
	}
	if !q.IsActive {
		return nil, fmt.Errorf("start quest %q: %w: quest is not running", questID, ErrInvalidInput)
	}

	update := &QuestUpdate{}
	var instance *models.UserQuest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now()
		stats, err := loadStats(tx, userID, models.StatScopeQuests)
		if err != nil {
			return err
		}
		if err := s.refreshTx(tx, userID, stats, now, update); err != nil {
			return err
		}

		var existing []models.UserQuest
		if err := tx.Where("user_id = ? AND quest_id = ? AND status = ?", userID, questID, models.QuestStatusActive).
			Limit(1).Find(&existing).Error; err != nil {
			return err
		}
		if len(existing) == 1 {
			instance = &existing[0]
			return nil
		}

		instance, err = s.activateTx(tx, userID, q, stats, now)
		if err != nil {
			return err
		}
		if instance == nil {
			return fmt.Errorf("%w: quest %q is locked or already done", ErrInvalidInput, questID)
		}
		update.Activated = append(update.Activated, questID)
		return s.evaluateTx(tx, userID, stats, now, update)
	})
	if err != nil {
		return nil, storeErr("start quest", err)
	}
	s.afterUpdate(ctx, userID, update)
	return instance, nil
}

// refreshTx runs first-touch activation, expiry and repeatable re-entry.
func (s *QuestService) refreshTx(tx *gorm.DB, userID string, stats map[string]int64, now time.Time, update *QuestUpdate) error {
	profile := &models.QuestProfile{UserID: userID, InitializedAt: now}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(profile)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		for _, q := range s.catalog {
			if !q.IsActive || len(q.Prerequisites) > 0 {
				continue
			}
			inst, err := s.activateTx(tx, userID, q, stats, now)
			if err != nil {
				return err
			}
			if inst != nil {
				update.Activated = append(update.Activated, q.ID)
			}
		}
		s.log.Debug().Str("user_id", userID).Strs("activated", update.Activated).Msg("quest system initialized")
	}

	expired, err := expireTx(tx, userID, now)
	if err != nil {
		return err
	}
	for _, inst := range expired {
		update.Expired = append(update.Expired, inst.QuestID)
	}

	for _, q := range s.catalog {
		if !q.IsActive || !q.IsRepeatable {
			continue
		}
		inst, err := s.activateTx(tx, userID, q, stats, now)
		if err != nil {
			return err
		}
		if inst != nil {
			update.Activated = append(update.Activated, q.ID)
		}
	}
	return nil
}

// evaluateTx completes met quests until nothing changes. Completions can
// unlock quests whose requirements already hold.
func (s *QuestService) evaluateTx(tx *gorm.DB, userID string, stats map[string]int64, now time.Time, update *QuestUpdate) error {
	for round := 0; round <= len(s.catalog); round++ {
		var active []models.UserQuest
		if err := tx.Where("user_id = ? AND status = ?", userID, models.QuestStatusActive).
			Order("started_at ASC, id ASC").
			Find(&active).Error; err != nil {
			return err
		}

		progressed := false
		for i := range active {
			inst := active[i]
			q, ok := s.byID[inst.QuestID]
			if !ok || !questMet(q, stats, inst.Baseline.Data()) {
				continue
			}
			done, err := s.completeTx(tx, inst, q, stats, now, update)
			if err != nil {
				return err
			}
			progressed = progressed || done
		}
		if !progressed {
			return nil
		}
	}
	return nil
}

// completeTx closes an instance, grants its title and unlock, queues the
// payout and activates the quests it unlocks.
func (s *QuestService) completeTx(tx *gorm.DB, inst models.UserQuest, q Quest, stats map[string]int64, now time.Time, update *QuestUpdate) (bool, error) {
	res := tx.Model(&models.UserQuest{}).
		Where("id = ? AND status = ?", inst.ID, models.QuestStatusActive).
		Updates(map[string]interface{}{
			"status":       models.QuestStatusCompleted,
			"completed_at": now,
			"ended_at":     now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	if q.Reward.Title != "" {
		title := &models.UserTitle{UserID: inst.UserID, Title: q.Reward.Title, QuestID: q.ID, EarnedAt: now}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(title).Error; err != nil {
			return false, err
		}
	}
	if q.Reward.Special != "" {
		unlock := &models.UserUnlock{UserID: inst.UserID, Unlock: q.Reward.Special, QuestID: q.ID, UnlockedAt: now}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(unlock).Error; err != nil {
			return false, err
		}
	}

	done := CompletedQuest{Quest: q, InstanceID: inst.ID, CompletedAt: now}
	payout := newPayout(inst.UserID, models.PayoutSourceQuest, inst.ID,
		"Quest: "+q.Title, q.Reward.Coins, q.Reward.XP, now)
	queued, err := enqueuePayout(tx, payout)
	if err != nil {
		return false, err
	}
	if queued {
		done.PayoutID = payout.ID
	}
	update.Completed = append(update.Completed, done)

	for _, next := range s.catalog {
		if !next.IsActive || !containsString(next.Prerequisites, q.ID) {
			continue
		}
		activated, err := s.activateTx(tx, inst.UserID, next, stats, now)
		if err != nil {
			return false, err
		}
		if activated != nil {
			update.Activated = append(update.Activated, next.ID)
		}
	}
	return true, nil
}

// activateTx starts a new instance of q if its prerequisites are complete and
// no earlier instance blocks it. It returns nil when nothing was started.
func (s *QuestService) activateTx(tx *gorm.DB, userID string, q Quest, stats map[string]int64, now time.Time) (*models.UserQuest, error) {
	if !q.IsActive {
		return nil, nil
	}
	if len(q.Prerequisites) > 0 {
		completed, err := completedQuestIDs(tx, userID)
		if err != nil {
			return nil, err
		}
		for _, p := range q.Prerequisites {
			if !completed[p] {
				return nil, nil
			}
		}
	}

	var last []models.UserQuest
	if err := tx.Where("user_id = ? AND quest_id = ?", userID, q.ID).
		Order("started_at DESC").
		Limit(1).
		Find(&last).Error; err != nil {
		return nil, err
	}
	if len(last) == 1 && !reenterable(q, last[0], now) {
		return nil, nil
	}

	inst := &models.UserQuest{
		ID:         uuid.NewString(),
		UserID:     userID,
		QuestID:    q.ID,
		Status:     models.QuestStatusActive,
		Repeatable: q.IsRepeatable,
		StartedAt:  now,
	}
	if q.IsRepeatable {
		baseline := make(map[string]int64, len(q.Requirements))
		for k := range q.Requirements {
			baseline[k] = stats[k]
		}
		inst.Baseline = datatypes.NewJSONType(baseline)
	}
	if q.TimeLimit > 0 {
		expires := now.Add(q.TimeLimit)
		inst.ExpiresAt = &expires
	}

	// the partial unique index rejects a second running instance
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(inst)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return inst, nil
}

// reenterable reports whether a new run may follow the last instance.
func reenterable(q Quest, last models.UserQuest, now time.Time) bool {
	if last.Status == models.QuestStatusActive || !q.IsRepeatable {
		return false
	}
	return last.ExpiresAt == nil || !last.ExpiresAt.After(now)
}

// questMet reports whether every requirement holds, relative to baseline.
func questMet(q Quest, stats, baseline map[string]int64) bool {
	for k, target := range q.Requirements {
		if stats[k]-baseline[k] < target {
			return false
		}
	}
	return true
}

// expireTx closes the active instances whose time limit has passed. An empty
// userID sweeps every user.
func expireTx(tx *gorm.DB, userID string, now time.Time) ([]models.UserQuest, error) {
	q := tx.Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", models.QuestStatusActive, now)
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	var due []models.UserQuest
	if err := q.Find(&due).Error; err != nil {
		return nil, err
	}

	expired := due[:0]
	for _, inst := range due {
		res := tx.Model(&models.UserQuest{}).
			Where("id = ? AND status = ?", inst.ID, models.QuestStatusActive).
			Updates(map[string]interface{}{
				"status":   models.QuestStatusExpired,
				"ended_at": now,
			})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 1 {
			expired = append(expired, inst)
		}
	}
	return expired, nil
}

func completedQuestIDs(tx *gorm.DB, userID string) (map[string]bool, error) {
	var ids []string
	if err := tx.Model(&models.UserQuest{}).
		Where("user_id = ? AND status = ?", userID, models.QuestStatusCompleted).
		Distinct("quest_id").
		Pluck("quest_id", &ids).Error; err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// afterUpdate runs the side effects of a committed quest update.
func (s *QuestService) afterUpdate(ctx context.Context, userID string, update *QuestUpdate) {
	for _, id := range update.Expired {
		questsExpired.WithLabelValues(id).Inc()
		s.log.Info().Str("user_id", userID).Str("quest", id).Msg("⌛ quest expired")
	}
	for _, id := range update.Activated {
		s.hub.Publish(Event{Type: EventQuestActivated, UserID: userID, Data: map[string]string{"quest_id": id}})
	}
	if len(update.Completed) == 0 {
		return
	}

	ids := make([]string, 0, len(update.Completed))
	for _, c := range update.Completed {
		questsCompleted.WithLabelValues(c.ID).Inc()
		s.log.Info().Str("user_id", userID).Str("quest", c.ID).Str("instance_id", c.InstanceID).Msg("🗺️ quest completed")
		if c.PayoutID != "" {
			ids = append(ids, c.PayoutID)
		}
	}
	var paid map[string]bool
	if s.payouts != nil {
		paid = s.payouts.Dispatch(ctx, ids)
	}
	for i := range update.Completed {
		c := &update.Completed[i]
		c.Paid = c.PayoutID == "" || paid[c.PayoutID]
		s.hub.Publish(Event{Type: EventQuestCompleted, UserID: userID, Data: *c})
	}

	if s.achievements != nil {
		if _, err := s.achievements.RecordStatDelta(ctx, userID, StatQuestsCompleted, int64(len(update.Completed))); err != nil {
			s.log.Error().Err(err).Str("user_id", userID).Msg("failed to count quest completions toward achievements")
		}
	}
}

// ExpireStale expires overdue instances of every user.
func (s *QuestService) ExpireStale(ctx context.Context) (int, error) {
	var expired []models.UserQuest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		expired, err = expireTx(tx, "", s.now())
		return err
	})
	if err != nil {
		return 0, storeErr("expire quests", err)
	}
	for _, inst := range expired {
		questsExpired.WithLabelValues(inst.QuestID).Inc()
	}
	if len(expired) > 0 {
		s.log.Info().Int("count", len(expired)).Msg("⌛ expired stale quests")
	}
	return len(expired), nil
}

// Progress returns the user's quest state, initializing it on first touch.
func (s *QuestService) Progress(ctx context.Context, userID string) (*QuestProgress, error) {
	if _, err := s.Initialize(ctx, userID); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	stats, err := loadStats(db, userID, models.StatScopeQuests)
	if err != nil {
		return nil, storeErr("quest progress", err)
	}
	var active []models.UserQuest
	if err := db.Where("user_id = ? AND status = ?", userID, models.QuestStatusActive).
		Order("started_at ASC, id ASC").
		Find(&active).Error; err != nil {
		return nil, storeErr("quest progress", err)
	}
	completed, err := completedQuestIDs(db, userID)
	if err != nil {
		return nil, storeErr("quest progress", err)
	}
	titles, err := s.Titles(ctx, userID)
	if err != nil {
		return nil, err
	}
	unlocks, err := s.Unlocks(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := &QuestProgress{
		Chapter:   s.chapterFor(completed),
		Active:    make([]ActiveQuest, 0, len(active)),
		Completed: make([]string, 0, len(completed)),
		Titles:    titles,
		Unlocks:   unlocks,
		Stats:     stats,
	}
	for _, inst := range active {
		q, ok := s.byID[inst.QuestID]
		if !ok {
			continue
		}
		out.Active = append(out.Active, activeView(q, inst, stats))
	}
	for _, q := range s.catalog {
		if completed[q.ID] {
			out.Completed = append(out.Completed, q.ID)
		}
	}
	return out, nil
}

func activeView(q Quest, inst models.UserQuest, stats map[string]int64) ActiveQuest {
	baseline := inst.Baseline.Data()
	view := ActiveQuest{Quest: q, InstanceID: inst.ID, StartedAt: inst.StartedAt, ExpiresAt: inst.ExpiresAt}
	var total float64
	for _, k := range q.RequirementKeys() {
		current := stats[k] - baseline[k]
		if current < 0 {
			current = 0
		}
		p := RequirementProgress{StatKey: k, Current: current, Target: q.Requirements[k], Percent: percentOf(current, q.Requirements[k])}
		total += p.Percent
		view.Requirements = append(view.Requirements, p)
	}
	if len(view.Requirements) > 0 {
		view.Percent = total / float64(len(view.Requirements))
	}
	return view
}

// Available lists the quests the user could start now.
func (s *QuestService) Available(ctx context.Context, userID string) ([]Quest, error) {
	db := s.db.WithContext(ctx)
	completed, err := completedQuestIDs(db, userID)
	if err != nil {
		return nil, storeErr("available quests", err)
	}

	var rows []models.UserQuest
	if err := db.Where("user_id = ?", userID).Order("started_at ASC").Find(&rows).Error; err != nil {
		return nil, storeErr("available quests", err)
	}
	last := make(map[string]models.UserQuest, len(rows))
	for _, r := range rows {
		last[r.QuestID] = r
	}

	now := s.now()
	var out []Quest
	for _, q := range s.catalog {
		if !q.IsActive {
			continue
		}
		locked := false
		for _, p := range q.Prerequisites {
			if !completed[p] {
				locked = true
				break
			}
		}
		if locked {
			continue
		}
		if prev, ok := last[q.ID]; ok && !reenterable(q, prev, now) {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

// Chapter is one past the highest completed chapter, within the catalog.
func (s *QuestService) Chapter(ctx context.Context, userID string) (int, error) {
	completed, err := completedQuestIDs(s.db.WithContext(ctx), userID)
	if err != nil {
		return 0, storeErr("quest chapter", err)
	}
	return s.chapterFor(completed), nil
}

func (s *QuestService) chapterFor(completed map[string]bool) int {
	highest := 0
	for id := range completed {
		if q, ok := s.byID[id]; ok && q.Chapter > highest {
			highest = q.Chapter
		}
	}
	chapter := highest + 1
	if s.maxChapter > 0 && chapter > s.maxChapter {
		chapter = s.maxChapter
	}
	if chapter < 1 {
		chapter = 1
	}
	return chapter
}

// Titles lists the titles the user earned.
func (s *QuestService) Titles(ctx context.Context, userID string) ([]string, error) {
	titles := []string{}
	if err := s.db.WithContext(ctx).Model(&models.UserTitle{}).
		Where("user_id = ?", userID).
		Order("earned_at ASC, title ASC").
		Pluck("title", &titles).Error; err != nil {
		return nil, storeErr("quest titles", err)
	}
	return titles, nil
}

// Unlocks lists the special unlocks the user earned.
func (s *QuestService) Unlocks(ctx context.Context, userID string) ([]string, error) {
	unlocks := []string{}
	if err := s.db.WithContext(ctx).Model(&models.UserUnlock{}).
		Where("user_id = ?", userID).
		Order("unlocked_at ASC, unlock ASC").
		Pluck("unlock", &unlocks).Error; err != nil {
		return nil, storeErr("quest unlocks", err)
	}
	return unlocks, nil
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
