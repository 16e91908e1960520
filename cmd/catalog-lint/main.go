package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"zentro/services"
)

func main() {
	dump := flag.Bool("json", false, "print both catalogs as JSON instead of linting")
	flag.Parse()

	achievements := services.AchievementCatalog()
	quests := services.QuestCatalog()

	if *dump {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(map[string]interface{}{"achievements": achievements, "quests": quests}); err != nil {
			fmt.Println("error: encode catalogs:", err)
			os.Exit(1)
		}
		return
	}

	os.Exit(lint(achievements, quests))
}

// lint prints one line per problem and returns the exit code.
func lint(achievements []services.Achievement, quests []services.Quest) int {
	exitCode := 0
	if err := services.ValidateAchievementCatalog(achievements, services.ChatMilestoneIDs()); err != nil {
		fmt.Println("achievements:", err)
		exitCode = 1
	}
	if err := services.ValidateQuestCatalog(quests); err != nil {
		fmt.Println("quests:", err)
		exitCode = 1
	}

	known := make(map[string]bool)
	for _, k := range services.KnownStats() {
		known[k] = true
	}
	// Unknown keys are accepted at runtime, so these are warnings only.
	for _, a := range achievements {
		if !known[a.StatKey] {
			fmt.Printf("achievements: %s: stat %q is never reported\n", a.ID, a.StatKey)
		}
	}
	dormant := 0
	for _, q := range quests {
		for _, k := range q.RequirementKeys() {
			if !known[k] {
				fmt.Printf("quests: %s: stat %q is never reported\n", q.ID, k)
			}
		}
		if !q.IsActive {
			dormant++
		}
	}

	if exitCode == 0 {
		fmt.Printf("achievements: OK (%d)\n", len(achievements))
		fmt.Printf("quests: OK (%d, %d dormant)\n", len(quests), dormant)
	}
	return exitCode
}
