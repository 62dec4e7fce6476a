package services

import (
	"testing"

	"quest-learning-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmit_MCQAccumulatesAndClampsAtLevelXP(t *testing.T) {
	db := setupTestDB(t)
	svc := NewProgressionService(db)
	topic := createTopic(t, db, "Arrays", "mcq", 25, 25, 25)

	res, err := svc.Submit("u1", topic.ID, 1, mcq(3, 5))
	require.NoError(t, err)
	assert.False(t, res.LevelPassed)
	assert.True(t, res.NeedNextProgram)
	assert.Equal(t, 15, res.EarnedXP)
	assert.Equal(t, 15, res.Progress.TotalTopicXP)
	assert.Equal(t, 1, res.Progress.CurrentLevel)

	// 15 + 20 overshoots the 25 XP level; the ledger clamps, the topic
	// total does not.
	res, err = svc.Submit("u1", topic.ID, 1, mcq(4, 5))
	require.NoError(t, err)
	assert.True(t, res.LevelPassed)
	assert.Equal(t, 20, res.EarnedXP)
	assert.Equal(t, 35, res.Progress.TotalTopicXP)
	assert.Equal(t, 1, res.Progress.PassedLevels)
	assert.Equal(t, 2, res.Progress.CurrentLevel)

	prog, err := svc.LoadProgress("u1", topic)
	require.NoError(t, err)
	lv := prog.FindLevel(1)
	require.NotNil(t, lv)
	assert.Equal(t, 25, lv.XPEarned)
	assert.True(t, lv.Passed)
}

func TestSubmit_PassCreditedOncePerLevel(t *testing.T) {
	db := setupTestDB(t)
	svc := NewProgressionService(db)
	topic := createTopic(t, db, "Strings", "mcq", 25, 25)

	res, err := svc.Submit("u1", topic.ID, 1, mcq(5, 5))
	require.NoError(t, err)
	assert.True(t, res.LevelPassed)

	xp, err := svc.GlobalXP("u1")
	require.NoError(t, err)
	assert.Equal(t, 25, xp)

	// Resubmitting an already-passed level never re-credits.
	res, err = svc.Submit("u1", topic.ID, 1, mcq(5, 5))
	require.NoError(t, err)
	assert.False(t, res.LevelPassed)
	assert.Equal(t, 1, res.Progress.PassedLevels)

	xp, err = svc.GlobalXP("u1")
	require.NoError(t, err)
	assert.Equal(t, 25, xp)
}

func TestSubmit_CodingIsAllOrNothing(t *testing.T) {
	db := setupTestDB(t)
	svc := NewProgressionService(db)
	topic := createTopic(t, db, "Linked Lists", "coding", 5)

	res, err := svc.Submit("u1", topic.ID, 1, coding(2, 3))
	require.NoError(t, err)
	assert.Equal(t, 0, res.EarnedXP)
	assert.False(t, res.LevelPassed)

	res, err = svc.Submit("u1", topic.ID, 1, coding(3, 3))
	require.NoError(t, err)
	assert.Equal(t, XPPerPassedProgram, res.EarnedXP)
	assert.True(t, res.LevelPassed)
}

func TestSubmit_GlobalXPOnlyOnPassTransition(t *testing.T) {
	db := setupTestDB(t)
	svc := NewProgressionService(db)
	topic := createTopic(t, db, "Recursion", "mcq", 25)

	_, err := svc.Submit("u1", topic.ID, 1, mcq(2, 5)) // 10, no pass
	require.NoError(t, err)
	xp, err := svc.GlobalXP("u1")
	require.NoError(t, err)
	assert.Equal(t, 0, xp)

	_, err = svc.Submit("u1", topic.ID, 1, mcq(3, 5)) // +15 = 25, pass
	require.NoError(t, err)
	xp, err = svc.GlobalXP("u1")
	require.NoError(t, err)
	// Only this submission's earnings are credited, not the level total.
	assert.Equal(t, 15, xp)
}

func TestSubmit_CompletionByLevels(t *testing.T) {
	db := setupTestDB(t)
	svc := NewProgressionService(db)
	topic := createTopic(t, db, "Graphs", "mcq", 5, 5)

	res, err := svc.Submit("u1", topic.ID, 1, mcq(1, 5))
	require.NoError(t, err)
	assert.True(t, res.LevelPassed)
	assert.False(t, res.JustCompleted)

	res, err = svc.Submit("u1", topic.ID, 2, mcq(1, 5))
	require.NoError(t, err)
	assert.True(t, res.LevelPassed)
	assert.True(t, res.JustCompleted)
	assert.True(t, res.Progress.Completed)
	// CurrentLevel clamps at the last level of a finished topic.
	assert.Equal(t, 2, res.Progress.CurrentLevel)

	prog, err := svc.LoadProgress("u1", topic)
	require.NoError(t, err)
	require.NotNil(t, prog.CompletedAt)
	require.NotNil(t, prog.LastSubmissionAt)
}

func TestSubmit_CompletionByTotalXPWhenNoLevels(t *testing.T) {
	db := setupTestDB(t)
	svc := NewProgressionService(db)
	topic := &models.Topic{
		ID:           uuid.NewString(),
		Title:        "Warmup",
		QuestionType: "mcq",
		TotalXP:      10,
		Status:       "published",
	}
	require.NoError(t, db.Create(topic).Error)

	res, err := svc.Submit("u1", topic.ID, 1, mcq(2, 2))
	require.NoError(t, err)
	assert.True(t, res.JustCompleted)
	assert.True(t, res.Progress.Completed)
	// No level pass happened, so the global ledger stays empty.
	assert.False(t, res.LevelPassed)
	xp, err := svc.GlobalXP("u1")
	require.NoError(t, err)
	assert.Equal(t, 0, xp)
}

func TestSubmit_Validation(t *testing.T) {
	db := setupTestDB(t)
	svc := NewProgressionService(db)
	topic := createTopic(t, db, "Sets", "mcq", 25)

	_, err := svc.Submit("u1", topic.ID, 0, mcq(1, 5))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Submit("u1", topic.ID, 1, mcq(0, 0))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Submit("u1", "no-such-topic", 1, mcq(1, 5))
	assert.ErrorIs(t, err, ErrTopicNotFound)
}

func TestLoadProgress_NeverTouched(t *testing.T) {
	db := setupTestDB(t)
	svc := NewProgressionService(db)
	topic := createTopic(t, db, "Maps", "mcq", 25)

	_, err := svc.LoadProgress("ghost", topic)
	assert.ErrorIs(t, err, ErrNoProgress)

	xp, err := svc.GlobalXP("ghost")
	require.NoError(t, err)
	assert.Equal(t, 0, xp)
}

func TestReconcileProgress_ClampsAndRederives(t *testing.T) {
	topic := &models.Topic{
		ID: "t1",
		Levels: []models.TopicLevel{
			{Level: 1, XPRequired: 25},
			{Level: 2, XPRequired: 25},
		},
	}
	progress := &models.TopicProgress{
		PassedLevels: 2,
		TotalTopicXP: 60,
		Levels: []models.LevelProgress{
			{Level: 1, XPEarned: 40, Passed: false}, // stale: over-credited, flag wrong
			{Level: 2, XPEarned: 25, Passed: true},
		},
	}

	changed := ReconcileProgress(progress, topic)
	assert.True(t, changed)
	assert.Equal(t, 25, progress.Levels[0].XPEarned)
	assert.True(t, progress.Levels[0].Passed)
	assert.True(t, progress.Completed)
	require.NotNil(t, progress.CompletedAt)

	// Idempotent: second application is a no-op.
	assert.False(t, ReconcileProgress(progress, topic))
}

func TestReconcileProgress_LoweredThresholdAdvancesCounters(t *testing.T) {
	topic := &models.Topic{
		ID: "t1",
		Levels: []models.TopicLevel{
			{Level: 1, XPRequired: 10}, // admin lowered from 25
		},
	}
	progress := &models.TopicProgress{
		CurrentLevel: 1,
		TotalTopicXP: 15,
		Levels: []models.LevelProgress{
			{Level: 1, XPEarned: 15, Passed: false},
		},
	}

	changed := ReconcileProgress(progress, topic)
	assert.True(t, changed)
	assert.Equal(t, 10, progress.Levels[0].XPEarned)
	assert.True(t, progress.Levels[0].Passed)
	// The pass must reach the counters, not just the flag.
	assert.Equal(t, 1, progress.PassedLevels)
	assert.True(t, progress.Completed)
	assert.Equal(t, 1, NextLevel(topic, progress))
}

func TestSubmit_AdminLoweredThresholdUnsticksProgress(t *testing.T) {
	db := setupTestDB(t)
	svc := NewProgressionService(db)
	topic := createTopic(t, db, "Pointers", "mcq", 25, 25)

	_, err := svc.Submit("u1", topic.ID, 1, mcq(3, 5)) // 15 of 25, no pass
	require.NoError(t, err)

	// Admin drops level 1's requirement below the banked XP.
	require.NoError(t, db.Model(&models.TopicLevel{}).
		Where("topic_id = ? AND level = ?", topic.ID, 1).
		Update("xp_required", 10).Error)

	reloaded, err := svc.GetTopic(topic.ID)
	require.NoError(t, err)
	prog, err := svc.LoadProgress("u1", reloaded)
	require.NoError(t, err)
	assert.Equal(t, 1, prog.PassedLevels)
	assert.Equal(t, 2, prog.CurrentLevel)
	assert.Equal(t, 2, NextLevel(reloaded, prog))

	// The next submission targets level 2 and can finish the topic.
	res, err := svc.Submit("u1", topic.ID, 2, mcq(5, 5))
	require.NoError(t, err)
	assert.True(t, res.LevelPassed)
	assert.True(t, res.JustCompleted)
	assert.Equal(t, 2, res.Progress.PassedLevels)
}

func TestReconcileProgress_CatalogGrowthReopensTopic(t *testing.T) {
	topic := &models.Topic{
		ID: "t1",
		Levels: []models.TopicLevel{
			{Level: 1, XPRequired: 25},
			{Level: 2, XPRequired: 25},
			{Level: 3, XPRequired: 25}, // added after the user finished
		},
	}
	now := timeNowPtr()
	progress := &models.TopicProgress{
		CurrentLevel: 2,
		PassedLevels: 2,
		TotalTopicXP: 50,
		Completed:    true,
		CompletedAt:  now,
		Levels: []models.LevelProgress{
			{Level: 1, XPEarned: 25, Passed: true},
			{Level: 2, XPEarned: 25, Passed: true},
		},
	}

	changed := ReconcileProgress(progress, topic)
	assert.True(t, changed)
	assert.False(t, progress.Completed)
	assert.Nil(t, progress.CompletedAt)
	assert.Equal(t, 3, progress.CurrentLevel)
}

func TestNextLevel(t *testing.T) {
	topic := &models.Topic{
		Levels: []models.TopicLevel{
			{Level: 1, XPRequired: 25},
			{Level: 2, XPRequired: 25},
			{Level: 3, XPRequired: 25},
		},
	}

	assert.Equal(t, 1, NextLevel(topic, nil))
	assert.Equal(t, 2, NextLevel(topic, &models.TopicProgress{CurrentLevel: 2, PassedLevels: 1}))
	// Passed levels ahead of the pointer win.
	assert.Equal(t, 3, NextLevel(topic, &models.TopicProgress{CurrentLevel: 1, PassedLevels: 2}))
	// Clamped to the last defined level.
	assert.Equal(t, 3, NextLevel(topic, &models.TopicProgress{CurrentLevel: 2, PassedLevels: 3}))
}

func TestSections_GroupsByStanding(t *testing.T) {
	db := setupTestDB(t)
	svc := NewProgressionService(db)
	running := createTopic(t, db, "Running Topic", "mcq", 25, 25)
	done := createTopic(t, db, "Done Topic", "mcq", 5)
	createTopic(t, db, "Untouched Topic", "mcq", 25)

	_, err := svc.Submit("u1", running.ID, 1, mcq(2, 5))
	require.NoError(t, err)
	_, err = svc.Submit("u1", done.ID, 1, mcq(1, 5))
	require.NoError(t, err)

	sections, err := svc.Sections("u1")
	require.NoError(t, err)
	require.Len(t, sections.Running, 1)
	require.Len(t, sections.Completed, 1)
	require.Len(t, sections.Remaining, 1)
	assert.Equal(t, running.ID, sections.Running[0].ID)
	assert.Equal(t, done.ID, sections.Completed[0].ID)
	assert.Equal(t, "Untouched Topic", sections.Remaining[0].Title)
	require.NotNil(t, sections.Running[0].Progress)
	assert.Equal(t, 10, sections.Running[0].Progress.TotalTopicXP)
	assert.Nil(t, sections.Remaining[0].Progress)
}

func TestReview_ExposesLedger(t *testing.T) {
	db := setupTestDB(t)
	svc := NewProgressionService(db)
	topic := createTopic(t, db, "Queues", "mcq", 25, 25)

	_, err := svc.Submit("u1", topic.ID, 1, mcq(5, 5))
	require.NoError(t, err)

	review, err := svc.Review("u1", topic.ID)
	require.NoError(t, err)
	assert.Equal(t, topic.ID, review.Topic.ID)
	require.Len(t, review.Progress.Levels, 1)
	assert.Equal(t, 25, review.Progress.Levels[0].XPEarned)
	assert.True(t, review.Progress.Levels[0].Passed)
	require.NotNil(t, review.Progress.LastSubmissionAt)

	_, err = svc.Review("nobody", topic.ID)
	assert.ErrorIs(t, err, ErrNoProgress)
}

// Full run through a three-level topic the way a user would play it.
func TestSubmit_EndToEnd(t *testing.T) {
	db := setupTestDB(t)
	svc := NewProgressionService(db)
	topic := createTopic(t, db, "Arrays", "mcq", 25, 25, 25)

	steps := []struct {
		level      int
		correct    int
		wantPassed bool
		wantDone   bool
	}{
		{1, 5, true, false},  // 25, level 1 passed
		{2, 3, false, false}, // 15
		{2, 2, true, false},  // +10 = 25, level 2 passed
		{3, 4, false, false}, // 20
		{3, 1, true, true},   // +5 = 25, level 3 passed, topic complete
	}
	for _, step := range steps {
		res, err := svc.Submit("u1", topic.ID, step.level, mcq(step.correct, 5))
		require.NoError(t, err)
		assert.Equal(t, step.wantPassed, res.LevelPassed, "level %d correct %d", step.level, step.correct)
		assert.Equal(t, step.wantDone, res.JustCompleted, "level %d correct %d", step.level, step.correct)
	}

	prog, err := svc.LoadProgress("u1", topic)
	require.NoError(t, err)
	assert.Equal(t, 3, prog.PassedLevels)
	assert.Equal(t, 75, prog.TotalTopicXP)
	assert.True(t, prog.Completed)

	// Global ledger took each pass's own earnings: 25 + 10 + 5.
	xp, err := svc.GlobalXP("u1")
	require.NoError(t, err)
	assert.Equal(t, 40, xp)
}
