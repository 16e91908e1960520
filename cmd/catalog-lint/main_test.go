package main

import (
	"testing"

	"zentro/services"

	"github.com/stretchr/testify/assert"
)

func TestLintAcceptsShippedCatalogs(t *testing.T) {
	assert.Equal(t, 0, lint(services.AchievementCatalog(), services.QuestCatalog()))
}

func TestLintRejectsBrokenQuestGraph(t *testing.T) {
	quests := services.QuestCatalog()
	quests[0].Prerequisites = []string{"missing_quest"}
	assert.Equal(t, 1, lint(services.AchievementCatalog(), quests))
}

func TestLintRejectsMissingMilestone(t *testing.T) {
	var achievements []services.Achievement
	for _, a := range services.AchievementCatalog() {
		if a.ID != "ce_first_dm_zenny" {
			achievements = append(achievements, a)
		}
	}
	assert.Equal(t, 1, lint(achievements, services.QuestCatalog()))
}
