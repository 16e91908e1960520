// services/quest_catalog.go - World quest definitions and prerequisite graph
package services

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Difficulty tiers
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
	DifficultyHard         Difficulty = "hard"
)

// QuestReward extends Reward with an optional title and special unlock.
type QuestReward struct {
	Coins   int64  `json:"coins"`
	XP      int64  `json:"xp"`
	Title   string `json:"title,omitempty"`
	Special string `json:"special,omitempty"`
}

// Quest is a catalog entry. Every requirement must be met to complete it.
type Quest struct {
	ID            string           `json:"id"`
	Title         string           `json:"title"`
	Description   string           `json:"description"`
	Narrative     string           `json:"narrative"`
	Type          string           `json:"type"`
	Difficulty    Difficulty       `json:"difficulty"`
	Requirements  map[string]int64 `json:"requirements"`
	Reward        QuestReward      `json:"reward"`
	Prerequisites []string         `json:"prerequisites,omitempty"`
	TimeLimit     time.Duration    `json:"time_limit,omitempty"`
	IsActive      bool             `json:"is_active"`
	IsRepeatable  bool             `json:"is_repeatable"`
	Chapter       int              `json:"chapter"`
}

const day = 24 * time.Hour

var questCatalog = []Quest{
	// Chapter 1: The Awakening
	{
		ID:           "first_steps",
		Title:        "First Steps into Zentro",
		Description:  "Welcome to Zentro! Complete your first battle to prove your worth.",
		Narrative:    "The digital realm of Zentro awaits. Ancient algorithms whisper of a chosen developer who will unite the scattered code fragments...",
		Type:         "tutorial",
		Difficulty:   DifficultyBeginner,
		Requirements: map[string]int64{StatBattlesCompleted: 1},
		Reward:       QuestReward{Coins: 500, XP: 200, Title: "Zentro Initiate"},
		IsActive:     true,
		Chapter:      1,
	},
	{
		ID:           "squad_alliance",
		Title:        "Forge Your Alliance",
		Description:  "Join or create a squad to begin your journey with allies.",
		Narrative:    "Alone, a developer is strong. Together, they are unstoppable. The ancient guilds of Zentro call for new alliances...",
		Type:         "social",
		Difficulty:   DifficultyBeginner,
		Requirements: map[string]int64{StatSquadJoined: 1},
		Reward:       QuestReward{Coins: 750, XP: 300, Title: "Alliance Forger"},
		IsActive:     true,
		Chapter:      1,
	},

	// Chapter 2: The Trials
	{
		ID:            "battle_mastery",
		Title:         "Master of Combat",
		Description:   "Win 10 battles to prove your combat prowess.",
		Narrative:     "The Battle Arenas echo with the clash of code and creativity. Only those who master both logic and innovation can claim victory...",
		Type:          "combat",
		Difficulty:    DifficultyIntermediate,
		Requirements:  map[string]int64{StatBattlesWon: 10},
		Reward:        QuestReward{Coins: 2000, XP: 1000, Title: "Battle Master", Special: "unlock_advanced_battles"},
		Prerequisites: []string{"first_steps"},
		IsActive:      true,
		Chapter:       2,
	},
	{
		ID:            "coin_empire",
		Title:         "Build Your Empire",
		Description:   "Accumulate 5,000 Zenny coins through various activities.",
		Narrative:     "The economy of Zentro flows like digital rivers. Those who understand its currents can build vast empires...",
		Type:          "economy",
		Difficulty:    DifficultyIntermediate,
		Requirements:  map[string]int64{StatTotalCoinsEarned: 5000},
		Reward:        QuestReward{Coins: 1500, XP: 800, Title: "Coin Baron", Special: "unlock_premium_features"},
		Prerequisites: []string{"first_steps"},
		IsActive:      true,
		Chapter:       2,
	},

	// Chapter 3: The Legends
	{
		ID:            "legendary_status",
		Title:         "Ascend to Legend",
		Description:   "Reach Level 25 and unlock legendary status.",
		Narrative:     "Few have walked the path to legend. The ancient servers remember only the greatest developers who shaped Zentro itself...",
		Type:          "progression",
		Difficulty:    DifficultyAdvanced,
		Requirements:  map[string]int64{StatLevelReached: 25},
		Reward:        QuestReward{Coins: 10000, XP: 5000, Title: "Zentro Legend", Special: "legendary_badge"},
		Prerequisites: []string{"battle_mastery", "coin_empire"},
		IsActive:      true,
		Chapter:       3,
	},

	// Community events
	{
		ID:           "weekly_challenge",
		Title:        "Weekly Coding Gauntlet",
		Description:  "Complete 5 coding challenges this week.",
		Narrative:    "The Code Masters have issued a challenge to all developers. Will you rise to meet it?",
		Type:         "event",
		Difficulty:   DifficultyIntermediate,
		Requirements: map[string]int64{StatChallengesCompletedWeek: 5},
		Reward:       QuestReward{Coins: 1000, XP: 500, Title: "Weekly Champion"},
		TimeLimit:    7 * day,
		IsActive:     true,
		IsRepeatable: true,
	},
	{
		ID:           "squad_war_event",
		Title:        "The Great Squad War",
		Description:  "Participate in squad battles during the monthly war event.",
		Narrative:    "Once a month, the greatest squads clash in epic battles. Honor, glory, and massive rewards await the victors...",
		Type:         "event",
		Difficulty:   DifficultyHard,
		Requirements: map[string]int64{StatSquadBattles: 3},
		Reward:       QuestReward{Coins: 5000, XP: 2500, Title: "War Veteran", Special: "exclusive_squad_badge"},
		TimeLimit:    30 * day,
		IsActive:     false,
		IsRepeatable: true,
	},
}

func init() {
	if err := ValidateQuestCatalog(questCatalog); err != nil {
		panic(fmt.Sprintf("quest catalog: %v", err))
	}
}

// QuestCatalog returns a copy of the catalog in declaration order.
func QuestCatalog() []Quest {
	out := make([]Quest, len(questCatalog))
	copy(out, questCatalog)
	return out
}

// FindQuest looks up a catalog entry.
func FindQuest(id string) (Quest, bool) {
	for _, q := range questCatalog {
		if q.ID == id {
			return q, true
		}
	}
	return Quest{}, false
}

// RequirementKeys returns the requirement stat keys in sorted order.
func (q Quest) RequirementKeys() []string {
	keys := make([]string, 0, len(q.Requirements))
	for k := range q.Requirements {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ValidateQuestCatalog checks ids, requirements and that the prerequisite
// graph references known quests without cycles.
func ValidateQuestCatalog(catalog []Quest) error {
	var errs []error
	byID := make(map[string]Quest, len(catalog))
	for _, q := range catalog {
		if q.ID == "" {
			errs = append(errs, errors.New("quest with empty id"))
			continue
		}
		if _, dup := byID[q.ID]; dup {
			errs = append(errs, fmt.Errorf("duplicate quest id %q", q.ID))
		}
		byID[q.ID] = q

		if len(q.Requirements) == 0 {
			errs = append(errs, fmt.Errorf("quest %q has no requirements", q.ID))
		}
		for k, t := range q.Requirements {
			if k == "" || t <= 0 {
				errs = append(errs, fmt.Errorf("quest %q has an invalid requirement %q=%d", q.ID, k, t))
			}
		}
		if q.IsRepeatable && q.TimeLimit <= 0 {
			errs = append(errs, fmt.Errorf("repeatable quest %q needs a time limit", q.ID))
		}
		if q.Reward.Coins < 0 || q.Reward.XP < 0 {
			errs = append(errs, fmt.Errorf("quest %q has a negative reward", q.ID))
		}
	}

	for _, q := range catalog {
		for _, p := range q.Prerequisites {
			if _, ok := byID[p]; !ok {
				errs = append(errs, fmt.Errorf("quest %q requires unknown quest %q", q.ID, p))
			}
			if p == q.ID {
				errs = append(errs, fmt.Errorf("quest %q requires itself", q.ID))
			}
		}
	}

	// depth-first search for prerequisite cycles
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(byID))
	var visit func(id string) bool
	visit = func(id string) bool {
		switch state[id] {
		case visiting:
			return true
		case done:
			return false
		}
		state[id] = visiting
		for _, p := range byID[id].Prerequisites {
			if _, ok := byID[p]; ok && visit(p) {
				return true
			}
		}
		state[id] = done
		return false
	}
	for _, q := range catalog {
		if state[q.ID] == unvisited && visit(q.ID) {
			errs = append(errs, fmt.Errorf("prerequisite cycle through quest %q", q.ID))
			break
		}
	}

	return errors.Join(errs...)
}
