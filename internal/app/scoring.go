package app

import (
	"math"
	"sort"

	"quiz-session-service/internal/domain"
)

// timeBonusRate is the per-second speed reward applied to the unused portion
// of a question's time limit.
const timeBonusRate = 3

// streakMultiplier is a step function of the streak a participant carries
// into an answer. The first correct answer of a run always multiplies by 1.0;
// the higher tiers unlock on the answer submitted with the standing streak.
func streakMultiplier(streak int) float64 {
	switch {
	case streak >= 5:
		return 2.0
	case streak >= 3:
		return 1.5
	default:
		return 1.0
	}
}

// EvaluateAnswer scores a submission against a question. streak is the
// participant's consecutive-correct count entering this answer. It is pure:
// no I/O, no mutation of its inputs; the caller applies the outcome.
//
// Correctness is exact set equality with the question's correct options —
// partial overlap earns nothing. responseTime is clamped to
// [0, timeLimit] before the bonus is computed, so a client reporting a
// negative or over-limit value cannot mint extra points.
func EvaluateAnswer(q domain.Question, streak int, selectedOptionIDs []string, responseTime float64) (isCorrect bool, pointsEarned int) {
	if !sameOptionSet(selectedOptionIDs, q.CorrectOptionIDs) {
		return false, 0
	}

	rt := responseTime
	if rt < 0 {
		rt = 0
	}
	if limit := float64(q.TimeLimit); rt > limit {
		rt = limit
	}

	timeBonus := math.Floor((float64(q.TimeLimit) - rt) * timeBonusRate)
	if timeBonus < 0 {
		timeBonus = 0
	}
	points := math.Floor((float64(q.Points) + timeBonus) * streakMultiplier(streak))
	return true, int(points)
}

// sameOptionSet reports set equality ignoring order and duplicates.
func sameOptionSet(submitted, correct []string) bool {
	want := make(map[string]struct{}, len(correct))
	for _, id := range correct {
		want[id] = struct{}{}
	}
	got := make(map[string]struct{}, len(submitted))
	for _, id := range submitted {
		if _, ok := want[id]; !ok {
			return false
		}
		got[id] = struct{}{}
	}
	return len(got) == len(want)
}

// ComputeLeaderboard ranks participants by correct answers first and total
// response time second, with join order as the final tiebreak so the result
// is a total order: repeated calls over unchanged input are identical.
// Raw score deliberately does not participate in ranking — streak multipliers
// can push a slower player's score above a faster one's without changing
// their standing.
//
// Ranks are dense from 1. Departed participants rank like anyone else; their
// history outlives their connection.
func ComputeLeaderboard(participants []*domain.Participant) []domain.LeaderboardEntry {
	ordered := make([]*domain.Participant, 0, len(participants))
	ordered = append(ordered, participants...)
	sort.Slice(ordered, func(i, j int) bool {
		ci, ti := answerTotals(ordered[i])
		cj, tj := answerTotals(ordered[j])
		if ci != cj {
			return ci > cj
		}
		if ti != tj {
			return ti < tj
		}
		return ordered[i].JoinOrder < ordered[j].JoinOrder
	})

	entries := make([]domain.LeaderboardEntry, 0, len(ordered))
	for i, p := range ordered {
		correct, total := answerTotals(p)
		entries = append(entries, domain.LeaderboardEntry{
			Rank:              i + 1,
			ParticipantID:     p.ID,
			DisplayName:       p.DisplayName,
			AvatarID:          p.AvatarID,
			Score:             p.Score,
			CorrectCount:      correct,
			TotalResponseTime: total,
		})
	}
	return entries
}

func answerTotals(p *domain.Participant) (correct int, responseTime float64) {
	for _, a := range p.Answers {
		if a.IsCorrect {
			correct++
		}
		responseTime += a.ResponseTime
	}
	return correct, responseTime
}
