package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"quest-learning-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultLevelXP is the pass threshold assumed for a level the catalog does
// not define (admin removed it after users attempted it, or an empty-levels
// topic graded by TotalXP).
const DefaultLevelXP = 25

type ProgressionService struct {
	DB *gorm.DB
}

func NewProgressionService(db *gorm.DB) *ProgressionService {
	return &ProgressionService{DB: db}
}

// ProgressSnapshot is the client-facing view of a progress row.
type ProgressSnapshot struct {
	CurrentLevel int  `json:"current_level"`
	PassedLevels int  `json:"passed_levels"`
	TotalTopicXP int  `json:"total_topic_xp"`
	Completed    bool `json:"completed"`
}

// SubmitResult reports what one submission changed.
type SubmitResult struct {
	LevelPassed     bool             `json:"passed"`
	EarnedXP        int              `json:"earned_xp"`
	JustCompleted   bool             `json:"just_completed"`
	NeedNextProgram bool             `json:"need_next_program"`
	Progress        ProgressSnapshot `json:"progress"`
}

func snapshot(p *models.TopicProgress) ProgressSnapshot {
	return ProgressSnapshot{
		CurrentLevel: p.CurrentLevel,
		PassedLevels: p.PassedLevels,
		TotalTopicXP: p.TotalTopicXP,
		Completed:    p.Completed,
	}
}

// ReconcileProgress re-derives the cached fields of a progress row from its
// authoritative counters (PassedLevels, TotalTopicXP) against the current
// topic definition. The catalog is mutable under live progress, so derived
// state is never trusted — this runs on every read and write path instead of
// a migration job. Idempotent: a second application is a no-op.
//
// Returns true if anything changed and the row should be persisted.
func ReconcileProgress(progress *models.TopicProgress, topic *models.Topic) bool {
	changed := false

	// Re-clamp the ledger and re-derive per-level passed flags under the
	// current level definitions. Entries for levels the catalog no longer
	// defines are left untouched.
	for i := range progress.Levels {
		lv := &progress.Levels[i]
		def := topic.FindLevel(lv.Level)
		if def == nil {
			continue
		}
		if lv.XPEarned > def.XPRequired {
			lv.XPEarned = def.XPRequired
			changed = true
		}
		if passed := lv.XPEarned >= def.XPRequired; lv.Passed != passed {
			lv.Passed = passed
			changed = true
		}
		// A lowered threshold can confirm a pass the submit path never saw
		// (the banked XP now meets the requirement). The counters must
		// follow or the user is stuck replaying a level that no longer
		// counts. Global XP stays untouched here: only a submit-time
		// false→true transition credits the ledger.
		if lv.Passed && lv.Level > progress.PassedLevels {
			progress.PassedLevels = lv.Level
			changed = true
		}
	}

	totalLevels := topic.TotalLevels()
	if next := clampLevel(progress.PassedLevels+1, totalLevels); next > progress.CurrentLevel {
		progress.CurrentLevel = next
		changed = true
	}

	var shouldBeCompleted bool
	if totalLevels > 0 {
		shouldBeCompleted = progress.PassedLevels >= totalLevels
	} else {
		shouldBeCompleted = topic.TotalXP > 0 && progress.TotalTopicXP >= topic.TotalXP
	}

	if progress.Completed != shouldBeCompleted {
		progress.Completed = shouldBeCompleted
		changed = true
		if shouldBeCompleted {
			if progress.CompletedAt == nil {
				now := time.Now()
				progress.CompletedAt = &now
			}
		} else {
			// Catalog grew: re-open at the first unpassed level.
			progress.CompletedAt = nil
			progress.CurrentLevel = clampLevel(progress.PassedLevels+1, totalLevels)
		}
	}

	return changed
}

// clampLevel bounds a level pointer to [1, totalLevels]; topics without a
// defined ladder are unbounded above.
func clampLevel(level, totalLevels int) int {
	if level < 1 {
		level = 1
	}
	if totalLevels > 0 && level > totalLevels {
		level = totalLevels
	}
	return level
}

// NextLevel determines which level a user attempts next.
func NextLevel(topic *models.Topic, progress *models.TopicProgress) int {
	if progress == nil {
		return 1
	}
	next := progress.CurrentLevel
	if progress.PassedLevels+1 > next {
		next = progress.PassedLevels + 1
	}
	return clampLevel(next, topic.TotalLevels())
}

// GetTopic loads a topic with its levels ordered.
func (s *ProgressionService) GetTopic(topicID string) (*models.Topic, error) {
	var topic models.Topic
	err := s.DB.Preload("Levels").Where("id = ?", topicID).First(&topic).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTopicNotFound
	}
	if err != nil {
		return nil, err
	}
	topic.SortLevels()
	return &topic, nil
}

// EnsureProgress returns the progress row for (user, topic), creating it
// lazily on first access (idempotent).
func (s *ProgressionService) EnsureProgress(userID, topicID string) (*models.TopicProgress, error) {
	var prog models.TopicProgress
	err := s.DB.Preload("Levels").
		Where("user_id = ? AND topic_id = ?", userID, topicID).
		First(&prog).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		prog = models.TopicProgress{
			ID:           uuid.NewString(),
			UserID:       userID,
			TopicID:      topicID,
			CurrentLevel: 1,
		}
		if err := s.DB.Create(&prog).Error; err != nil {
			return nil, err
		}
		return &prog, nil
	}
	if err != nil {
		return nil, err
	}
	return &prog, nil
}

// EnsureReconciled returns the user's progress for a topic, creating it on
// first access and reconciling it against the current catalog.
func (s *ProgressionService) EnsureReconciled(userID string, topic *models.Topic) (*models.TopicProgress, error) {
	prog, err := s.EnsureProgress(userID, topic.ID)
	if err != nil {
		return nil, err
	}
	if ReconcileProgress(prog, topic) {
		if err := s.persistProgress(s.DB, prog); err != nil {
			return nil, err
		}
	}
	return prog, nil
}

// LoadProgress fetches and reconciles the progress for (user, topic),
// persisting any correction so admin catalog edits are picked up lazily.
// Returns ErrNoProgress if the user never touched the topic.
func (s *ProgressionService) LoadProgress(userID string, topic *models.Topic) (*models.TopicProgress, error) {
	var prog models.TopicProgress
	err := s.DB.Preload("Levels").
		Where("user_id = ? AND topic_id = ?", userID, topic.ID).
		First(&prog).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoProgress
	}
	if err != nil {
		return nil, err
	}
	if ReconcileProgress(&prog, topic) {
		if err := s.persistProgress(s.DB, &prog); err != nil {
			return nil, err
		}
	}
	return &prog, nil
}

// Submit runs one graded submission through the accumulator: update the
// per-level ledger (clamped), add the raw earned XP to the topic total,
// decide level pass (credited once per level), re-derive completion against
// the live catalog, and persist — all inside one transaction. The global XP
// credit and the activity day-bucket hit follow after the progress commit,
// best-effort, so a partial failure under-credits rather than over-credits.
func (s *ProgressionService) Submit(userID, topicID string, level int, sub NormalizedSubmission) (*SubmitResult, error) {
	if level < 1 {
		return nil, fmt.Errorf("%w: level must be >= 1", ErrValidation)
	}
	if sub.Total <= 0 {
		return nil, fmt.Errorf("%w: total must be positive", ErrValidation)
	}

	topic, err := s.GetTopic(topicID)
	if err != nil {
		return nil, err
	}

	levelXP := DefaultLevelXP
	if def := topic.FindLevel(level); def != nil {
		levelXP = def.XPRequired
	}
	earnedXP := sub.EarnedXP()

	var result SubmitResult
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		var prog models.TopicProgress
		err := tx.Preload("Levels").
			Where("user_id = ? AND topic_id = ?", userID, topicID).
			First(&prog).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			prog = models.TopicProgress{
				ID:           uuid.NewString(),
				UserID:       userID,
				TopicID:      topicID,
				CurrentLevel: level,
			}
			if err := tx.Create(&prog).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		wasCompleted := prog.Completed

		// Per-level ledger entry, created lazily on first attempt.
		lv := prog.FindLevel(level)
		if lv == nil {
			prog.Levels = append(prog.Levels, models.LevelProgress{
				ID:         uuid.NewString(),
				ProgressID: prog.ID,
				Level:      level,
			})
			lv = &prog.Levels[len(prog.Levels)-1]
		}
		lv.XPEarned = min(levelXP, lv.XPEarned+earnedXP)

		// Topic total counts the raw amount, unclamped.
		prog.TotalTopicXP += earnedXP

		// Level pass: only the false→true transition counts for this call,
		// so resubmitting an already-passed level never re-credits XP.
		levelPassed := false
		if lv.XPEarned >= levelXP && !lv.Passed {
			lv.Passed = true
			levelPassed = true
			if level > prog.PassedLevels {
				prog.PassedLevels = level
			}
			prog.CurrentLevel = clampLevel(level+1, topic.TotalLevels())
		}

		ReconcileProgress(&prog, topic)

		now := time.Now()
		prog.LastSubmissionAt = &now

		if err := s.persistProgress(tx, &prog); err != nil {
			return err
		}

		result = SubmitResult{
			LevelPassed:     levelPassed,
			EarnedXP:        earnedXP,
			JustCompleted:   !wasCompleted && prog.Completed,
			NeedNextProgram: !levelPassed,
			Progress:        snapshot(&prog),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Global XP is credited only when the level just became passed, and only
	// with this submission's earnings — not the level's full total.
	if result.LevelPassed && earnedXP > 0 {
		if err := s.creditGlobalXP(userID, earnedXP); err != nil {
			log.Printf("⚠️  Global XP credit failed for %s: %v", userID, err)
		}
	}

	// Every valid submission counts toward today's activity bucket,
	// pass or fail.
	if err := NewActivityService(s.DB).RecordHit(userID, max(0, earnedXP)); err != nil {
		log.Printf("⚠️  Activity upsert failed for %s: %v", userID, err)
	}

	return &result, nil
}

func (s *ProgressionService) persistProgress(tx *gorm.DB, prog *models.TopicProgress) error {
	if err := tx.Omit(clause.Associations).Save(prog).Error; err != nil {
		return err
	}
	for i := range prog.Levels {
		if err := tx.Save(&prog.Levels[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *ProgressionService) creditGlobalXP(userID string, xp int) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var gx models.UserGlobalXP
		err := tx.Where("user_id = ?", userID).First(&gx).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			gx = models.UserGlobalXP{ID: uuid.NewString(), UserID: userID}
		} else if err != nil {
			return err
		}
		gx.TotalXP += xp
		return tx.Save(&gx).Error
	})
}

// GlobalXP returns the user's running total; a user with no ledger row has 0.
func (s *ProgressionService) GlobalXP(userID string) (int, error) {
	var gx models.UserGlobalXP
	err := s.DB.Where("user_id = ?", userID).First(&gx).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return gx.TotalXP, nil
}

// TopicSummary annotates a topic with the user's reconciled progress.
type TopicSummary struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	Category     string            `json:"category"`
	QuestionType string            `json:"question_type"`
	TotalXP      int               `json:"total_xp"`
	Progress     *ProgressSnapshot `json:"progress,omitempty"`
}

// Sections groups the catalog by the user's standing in it.
type Sections struct {
	Running   []TopicSummary `json:"running"`
	Completed []TopicSummary `json:"completed"`
	Remaining []TopicSummary `json:"remaining"`
}

// Sections returns running/completed/remaining topics for a user, each
// progress row reconciled against the current catalog before grouping.
func (s *ProgressionService) Sections(userID string) (*Sections, error) {
	var progressRows []models.TopicProgress
	if err := s.DB.Preload("Levels").Where("user_id = ?", userID).Find(&progressRows).Error; err != nil {
		return nil, err
	}

	out := &Sections{
		Running:   []TopicSummary{},
		Completed: []TopicSummary{},
		Remaining: []TopicSummary{},
	}
	progressed := make(map[string]bool, len(progressRows))

	for i := range progressRows {
		prog := &progressRows[i]
		var topic models.Topic
		err := s.DB.Preload("Levels").Where("id = ?", prog.TopicID).First(&topic).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue // dangling progress for a deleted topic
		}
		if err != nil {
			return nil, err
		}
		topic.SortLevels()
		progressed[topic.ID] = true

		if ReconcileProgress(prog, &topic) {
			if err := s.persistProgress(s.DB, prog); err != nil {
				return nil, err
			}
		}

		snap := snapshot(prog)
		summary := TopicSummary{
			ID:           topic.ID,
			Title:        topic.Title,
			Description:  topic.Description,
			Category:     topic.Category,
			QuestionType: topic.QuestionType,
			TotalXP:      topic.TotalXP,
			Progress:     &snap,
		}
		if prog.Completed {
			out.Completed = append(out.Completed, summary)
		} else {
			out.Running = append(out.Running, summary)
		}
	}

	var allTopics []models.Topic
	if err := s.DB.Where("status = ?", "published").Find(&allTopics).Error; err != nil {
		return nil, err
	}
	for _, t := range allTopics {
		if progressed[t.ID] {
			continue
		}
		out.Remaining = append(out.Remaining, TopicSummary{
			ID:           t.ID,
			Title:        t.Title,
			Description:  t.Description,
			Category:     t.Category,
			QuestionType: t.QuestionType,
			TotalXP:      t.TotalXP,
		})
	}

	return out, nil
}

// Review is the full per-level ledger view for one topic.
type Review struct {
	Topic struct {
		ID          string              `json:"id"`
		Title       string              `json:"title"`
		Description string              `json:"description"`
		TotalXP     int                 `json:"total_xp"`
		Levels      []models.TopicLevel `json:"levels"`
	} `json:"topic"`
	Progress struct {
		ProgressSnapshot
		Levels           []models.LevelProgress `json:"levels"`
		LastSubmissionAt *time.Time             `json:"last_submission_at"`
		CompletedAt      *time.Time             `json:"completed_at"`
		CreatedAt        time.Time              `json:"created_at"`
		UpdatedAt        time.Time              `json:"updated_at"`
	} `json:"progress"`
}

// Review returns ledger details for a running or completed topic.
func (s *ProgressionService) Review(userID, topicID string) (*Review, error) {
	topic, err := s.GetTopic(topicID)
	if err != nil {
		return nil, err
	}
	prog, err := s.LoadProgress(userID, topic)
	if err != nil {
		return nil, err
	}

	var r Review
	r.Topic.ID = topic.ID
	r.Topic.Title = topic.Title
	r.Topic.Description = topic.Description
	r.Topic.TotalXP = topic.TotalXP
	r.Topic.Levels = topic.Levels
	r.Progress.ProgressSnapshot = snapshot(prog)
	r.Progress.Levels = prog.Levels
	r.Progress.LastSubmissionAt = prog.LastSubmissionAt
	r.Progress.CompletedAt = prog.CompletedAt
	r.Progress.CreatedAt = prog.CreatedAt
	r.Progress.UpdatedAt = prog.UpdatedAt
	return &r, nil
}
