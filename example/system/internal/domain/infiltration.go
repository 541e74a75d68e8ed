package domain

import "fmt"

// QuestDifficulty is the difficulty of an enumTerminatorJob quest.
type QuestDifficulty string

const (
	QuestEasy    QuestDifficulty = "EASY"
	QuestNormal  QuestDifficulty = "NORMAL"
	QuestHard    QuestDifficulty = "HARD"
	QuestExtreme QuestDifficulty = "EXTREME"
)

// QuestDifficulties lists every difficulty in increasing order.
var QuestDifficulties = []string{string(QuestEasy), string(QuestNormal), string(QuestHard), string(QuestExtreme)}

// BaseReward is the reward of an EASY quest, in megabytes.
const BaseReward = 100

// Reward returns the reward of a quest of difficulty d.
func (d QuestDifficulty) Reward() (int, error) {
	switch d {
	case QuestEasy:
		return BaseReward, nil
	case QuestNormal:
		return BaseReward * 2, nil
	case QuestHard:
		return BaseReward * 3, nil
	case QuestExtreme:
		return BaseReward * 5, nil
	}
	return 0, fmt.Errorf("unknown quest difficulty '%s'", d)
}

// SystemInfiltrationParameters are the job parameters of pojoTerminatorJob.
type SystemInfiltrationParameters struct {
	MissionName        string `batch:"missionName"`
	SecurityLevel      int    `batch:"securityLevel"`
	OperationCommander string `batch:"operationCommander"`
}

// BaseInfiltrationMinutes is the infiltration time at security level 1.
const BaseInfiltrationMinutes = 60

// InfiltrationMinutes doubles the base time for every security level above 1, up to
// level 4. Unknown levels take the base time.
func (p SystemInfiltrationParameters) InfiltrationMinutes() int {
	switch p.SecurityLevel {
	case 2:
		return BaseInfiltrationMinutes * 2
	case 3:
		return BaseInfiltrationMinutes * 4
	case 4:
		return BaseInfiltrationMinutes * 8
	default:
		return BaseInfiltrationMinutes
	}
}
