// services/achievement_catalog.go - Declarative achievement rules
package services

import (
	"errors"
	"fmt"
)

// Rarity tiers
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// Reward is paid when an achievement unlocks or a quest completes.
type Reward struct {
	Coins int64 `json:"coins"`
	XP    int64 `json:"xp"`
}

// Achievement is a catalog entry: unlocks once stats[StatKey] >= Threshold.
type Achievement struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Category    string `json:"category"`
	Rarity      Rarity `json:"rarity"`
	StatKey     string `json:"stat_key"`
	Threshold   int64  `json:"threshold"`
	Reward      Reward `json:"reward"`
}

// achievementCatalog is evaluated in declaration order.
var achievementCatalog = []Achievement{
	// Battle
	{ID: "first_blood", Title: "First Blood", Description: "Win your first battle", Icon: "⚔️",
		Category: "battle", Rarity: RarityCommon, StatKey: StatBattleWins, Threshold: 1,
		Reward: Reward{Coins: 100, XP: 50}},
	{ID: "battle_veteran", Title: "Battle Veteran", Description: "Win 10 battles", Icon: "🛡️",
		Category: "battle", Rarity: RarityUncommon, StatKey: StatBattleWins, Threshold: 10,
		Reward: Reward{Coins: 500, XP: 200}},
	{ID: "unstoppable", Title: "Unstoppable", Description: "Win 5 battles in a row", Icon: "🔥",
		Category: "battle", Rarity: RarityRare, StatKey: StatWinStreak, Threshold: 5,
		Reward: Reward{Coins: 1000, XP: 500}},
	{ID: "legendary_warrior", Title: "Legendary Warrior", Description: "Win 100 battles", Icon: "👑",
		Category: "battle", Rarity: RarityLegendary, StatKey: StatBattleWins, Threshold: 100,
		Reward: Reward{Coins: 5000, XP: 2000}},

	// Squad
	{ID: "squad_founder", Title: "Squad Founder", Description: "Create your first squad", Icon: "🏗️",
		Category: "squad", Rarity: RarityCommon, StatKey: StatSquadsCreated, Threshold: 1,
		Reward: Reward{Coins: 200, XP: 100}},

	// Economy
	{ID: "coin_collector", Title: "Coin Collector", Description: "Earn 10,000 Zenny coins", Icon: "💰",
		Category: "economy", Rarity: RarityRare, StatKey: StatTotalCoinsEarned, Threshold: 10000,
		Reward: Reward{Coins: 2500, XP: 1000}},
	{ID: "high_roller", Title: "High Roller", Description: "Win a bet worth 1000+ coins", Icon: "🎰",
		Category: "economy", Rarity: RarityEpic, StatKey: StatBiggestBetWin, Threshold: 1000,
		Reward: Reward{Coins: 3000, XP: 1200}},
	{ID: "streak_master", Title: "Streak Master", Description: "Maintain a 30-day login streak", Icon: "📅",
		Category: "economy", Rarity: RarityLegendary, StatKey: StatDailyStreak, Threshold: 30,
		Reward: Reward{Coins: 10000, XP: 5000}},

	// Quests
	{ID: "quest_seeker", Title: "Quest Seeker", Description: "Complete 3 world quests", Icon: "🗺️",
		Category: "quest", Rarity: RarityUncommon, StatKey: StatQuestsCompleted, Threshold: 3,
		Reward: Reward{Coins: 300, XP: 150}},

	// Chat engagement
	{ID: "ce_first_dm_zenny", Title: "Hello There, Zenny!", Description: "You sent your first message to Zenny.", Icon: "👋",
		Category: "chat", Rarity: RarityCommon, StatKey: StatMessagesToCompanion, Threshold: 1,
		Reward: Reward{XP: 15}},
	{ID: "ce_chit_chatter_5", Title: "Chit Chatter", Description: "Send 5 messages to Zenny.", Icon: "💬",
		Category: "chat", Rarity: RarityCommon, StatKey: StatMessagesToCompanion, Threshold: 5,
		Reward: Reward{XP: 20}},
	{ID: "ce_ai_fan_10", Title: "AI Fan!", Description: "You've exchanged 10 messages with Zenny.", Icon: "🗣️",
		Category: "chat", Rarity: RarityCommon, StatKey: StatMessagesToCompanion, Threshold: 10,
		Reward: Reward{XP: 30}},
	{ID: "ce_story_weaver_25", Title: "Story Weaver", Description: "Send 25 messages to Zenny.", Icon: "🧵",
		Category: "chat", Rarity: RarityUncommon, StatKey: StatMessagesToCompanion, Threshold: 25,
		Reward: Reward{Coins: 50, XP: 50}},
	{ID: "ce_dialogue_dominator_50", Title: "Dialogue Dominator", Description: "Send 50 messages to Zenny.", Icon: "🎙️",
		Category: "chat", Rarity: RarityRare, StatKey: StatMessagesToCompanion, Threshold: 50,
		Reward: Reward{Coins: 100, XP: 75}},
	{ID: "ce_zennys_bestie_100", Title: "Zenny's Bestie", Description: "Send 100 messages to Zenny.", Icon: "💞",
		Category: "chat", Rarity: RarityEpic, StatKey: StatMessagesToCompanion, Threshold: 100,
		Reward: Reward{Coins: 250, XP: 100}},
	{ID: "ce_top_talker_500", Title: "Top Talker!", Description: "Wow, 500 messages sent to Zenny!", Icon: "👑",
		Category: "chat", Rarity: RarityLegendary, StatKey: StatMessagesToCompanion, Threshold: 500,
		Reward: Reward{Coins: 500, XP: 150}},
}

func init() {
	if err := ValidateAchievementCatalog(achievementCatalog, ChatMilestoneIDs()); err != nil {
		panic(fmt.Sprintf("achievement catalog: %v", err))
	}
}

// AchievementCatalog returns a copy of the catalog in evaluation order.
func AchievementCatalog() []Achievement {
	out := make([]Achievement, len(achievementCatalog))
	copy(out, achievementCatalog)
	return out
}

// FindAchievement looks up a catalog entry.
func FindAchievement(id string) (Achievement, bool) {
	for _, a := range achievementCatalog {
		if a.ID == id {
			return a, true
		}
	}
	return Achievement{}, false
}

// ValidateAchievementCatalog checks the catalog shape and that every id in
// required is defined.
func ValidateAchievementCatalog(catalog []Achievement, required []string) error {
	var errs []error
	seen := make(map[string]bool, len(catalog))
	for _, a := range catalog {
		switch {
		case a.ID == "":
			errs = append(errs, errors.New("achievement with empty id"))
			continue
		case seen[a.ID]:
			errs = append(errs, fmt.Errorf("duplicate achievement id %q", a.ID))
		case a.StatKey == "":
			errs = append(errs, fmt.Errorf("achievement %q has no stat key", a.ID))
		case a.Threshold <= 0:
			errs = append(errs, fmt.Errorf("achievement %q has non-positive threshold", a.ID))
		case a.Reward.Coins < 0 || a.Reward.XP < 0:
			errs = append(errs, fmt.Errorf("achievement %q has a negative reward", a.ID))
		}
		seen[a.ID] = true
	}
	for _, id := range required {
		if !seen[id] {
			errs = append(errs, fmt.Errorf("referenced achievement %q is not defined", id))
		}
	}
	return errors.Join(errs...)
}
