package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"quest-learning-system/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

type BadgeService struct {
	DB          *gorm.DB
	Progression *ProgressionService
}

func NewBadgeService(db *gorm.DB) *BadgeService {
	return &BadgeService{DB: db, Progression: NewProgressionService(db)}
}

// Branded badge identities for well-known topics; everything else gets a
// title-cased "<Topic> Champion" and a slug-derived icon path.
var brandedBadges = []struct {
	match []string
	name  string
	icon  string
}{
	{[]string{"javascript", "js"}, "JavaScript Maestro", "/badges/js.png"},
	{[]string{"c++", "cpp"}, "C++ Grandmaster", "/badges/cpp.png"},
	{[]string{"python", "py"}, "Python Prodigy", "/badges/python.png"},
	{[]string{"css"}, "CSS3 Stylist", "/badges/css.png"},
	{[]string{"array"}, "Array Ace", "/badges/js.png"},
	{[]string{"string"}, "String Specialist", "/badges/cpp.png"},
}

var titleCaser = cases.Title(language.English)

// BadgeNameFor derives the canonical badge name for a topic title. Fallback
// names are title-cased, so every capitalization of a topic title maps to
// the same badge identity (names are unique in the store).
func BadgeNameFor(title string) string {
	lower := strings.ToLower(title)
	for _, b := range brandedBadges {
		for _, m := range b.match {
			if strings.Contains(lower, m) {
				return b.name
			}
		}
	}
	return titleCaser.String(title) + " Champion"
}

// BadgeIconFor derives the canonical icon path for a topic title.
func BadgeIconFor(title string) string {
	lower := strings.ToLower(title)
	for _, b := range brandedBadges {
		for _, m := range b.match {
			if strings.Contains(lower, m) {
				return b.icon
			}
		}
	}
	return "/badges/" + slug.Make(title) + ".png"
}

// ClaimResult reports the outcome of a badge claim.
type ClaimResult struct {
	AlreadyHad  bool   `json:"already_had"`
	UserBadgeID string `json:"user_badge_id"`
}

// Claim awards the topic's badge to the user. Completion is reconciled
// against the live catalog first — a topic the admin has since extended is
// no longer claimable. Idempotent: a second claim reports AlreadyHad and
// never duplicates the award row.
func (s *BadgeService) Claim(userID, topicID string) (*ClaimResult, error) {
	topic, err := s.Progression.GetTopic(topicID)
	if err != nil {
		return nil, err
	}
	prog, err := s.Progression.LoadProgress(userID, topic)
	if err != nil {
		return nil, err
	}
	if !prog.Completed {
		return nil, fmt.Errorf("%w: new levels may have been added", ErrNotCompleted)
	}

	var result ClaimResult
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		badge, err := s.findOrCreateBadge(tx, topic)
		if err != nil {
			return err
		}

		var ub models.UserBadge
		err = tx.Where("user_id = ? AND badge_id = ?", userID, badge.ID).First(&ub).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ub = models.UserBadge{
				ID:       uuid.NewString(),
				UserID:   userID,
				BadgeID:  badge.ID,
				EarnedAt: time.Now(),
			}
			if err := tx.Create(&ub).Error; err != nil {
				return err
			}
			result = ClaimResult{AlreadyHad: false, UserBadgeID: ub.ID}
			return nil
		}
		if err != nil {
			return err
		}
		result = ClaimResult{AlreadyHad: true, UserBadgeID: ub.ID}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *BadgeService) findOrCreateBadge(tx *gorm.DB, topic *models.Topic) (*models.Badge, error) {
	var badge models.Badge
	err := tx.Where("topic_id = ?", topic.ID).First(&badge).Error
	if err == nil {
		return &badge, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	name := BadgeNameFor(topic.Title)
	// Names are unique; reuse an identically named badge rather than failing.
	err = tx.Where("name = ?", name).First(&badge).Error
	if err == nil {
		return &badge, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	badge = models.Badge{
		ID:          uuid.NewString(),
		Name:        name,
		Description: fmt.Sprintf("Completed all levels of %s", topic.Title),
		ImageURL:    BadgeIconFor(topic.Title),
		TopicID:     topic.ID,
	}
	if err := tx.Create(&badge).Error; err != nil {
		return nil, err
	}
	return &badge, nil
}

// UserHasBadgeForTopic reports whether the user already holds the badge
// linked to a topic. A topic without a badge definition yet reports false.
func (s *BadgeService) UserHasBadgeForTopic(userID, topicID string) (bool, error) {
	var badge models.Badge
	err := s.DB.Where("topic_id = ?", topicID).First(&badge).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	var n int64
	err = s.DB.Model(&models.UserBadge{}).
		Where("user_id = ? AND badge_id = ?", userID, badge.ID).
		Count(&n).Error
	return n > 0, err
}

// EarnedBadge is a badge the user holds, annotated with when it was earned.
type EarnedBadge struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	ImageURL    string     `json:"image_url"`
	EarnedAt    *time.Time `json:"earned_at"`
}

// ClaimableBadge is a badge the user has qualified for but not yet claimed.
type ClaimableBadge struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
}

// BadgeList groups a user's earned and claimable badges.
type BadgeList struct {
	Count     int              `json:"count"`
	Earned    []EarnedBadge    `json:"earned"`
	Claimable []ClaimableBadge `json:"claimable"`
}

// ListForUser returns earned badges filtered to topics still completed under
// the current catalog (a revoked completion hides the badge, it is not
// deleted), plus badges claimable for completed topics not yet awarded.
func (s *BadgeService) ListForUser(userID string) (*BadgeList, error) {
	var progressRows []models.TopicProgress
	if err := s.DB.Preload("Levels").Where("user_id = ?", userID).Find(&progressRows).Error; err != nil {
		return nil, err
	}

	completedTopics := make(map[string]bool)
	var completedIDs []string
	for i := range progressRows {
		prog := &progressRows[i]
		var topic models.Topic
		err := s.DB.Preload("Levels").Where("id = ?", prog.TopicID).First(&topic).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		topic.SortLevels()
		ReconcileProgress(prog, &topic)
		if prog.Completed {
			completedTopics[topic.ID] = true
			completedIDs = append(completedIDs, topic.ID)
		}
	}

	var userBadges []models.UserBadge
	if err := s.DB.Where("user_id = ?", userID).Find(&userBadges).Error; err != nil {
		return nil, err
	}

	out := &BadgeList{Earned: []EarnedBadge{}, Claimable: []ClaimableBadge{}}
	earnedBadgeIDs := make(map[string]bool)
	for _, ub := range userBadges {
		var badge models.Badge
		err := s.DB.Where("id = ?", ub.BadgeID).First(&badge).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		// Legacy badges without a topic link are always kept.
		if badge.TopicID != "" && !completedTopics[badge.TopicID] {
			continue
		}
		earnedAt := ub.EarnedAt
		out.Earned = append(out.Earned, EarnedBadge{
			ID:          badge.ID,
			Name:        badge.Name,
			Description: badge.Description,
			ImageURL:    badge.ImageURL,
			EarnedAt:    &earnedAt,
		})
		earnedBadgeIDs[badge.ID] = true
	}
	out.Count = len(out.Earned)

	if len(completedIDs) > 0 {
		var badges []models.Badge
		if err := s.DB.Where("topic_id IN ?", completedIDs).Find(&badges).Error; err != nil {
			return nil, err
		}
		for _, b := range badges {
			if earnedBadgeIDs[b.ID] {
				continue
			}
			out.Claimable = append(out.Claimable, ClaimableBadge{
				ID:          b.ID,
				Name:        b.Name,
				Description: b.Description,
				ImageURL:    b.ImageURL,
			})
		}
	}

	return out, nil
}
