// File: internal/engagement/merge.go

// Package engagement joins the friends list against collected post
// interactions. The join is pure: no I/O, no clock, same inputs always
// produce the same output.
package engagement

import (
	"sort"

	"github.com/xkilldash9x/socialgraph-cli/api/schemas"
)

// Score weights. Leaving a comment takes more effort than a reaction, and
// resharing is the strongest signal of all.
const (
	reactionWeight = 1
	commentWeight  = 3
	shareWeight    = 5
)

// Score computes the weighted engagement score for one tally.
func Score(reactions, comments, shares int) int {
	return reactions*reactionWeight + comments*commentWeight + shares*shareWeight
}

// Merge tallies every friend's interactions across the given posts and
// returns one record per friend, ordered by descending score. The sort is
// stable over the input friend order, so equal scores (including all the
// zero-engagement friends) keep their friends-list relative order.
// Interactions from actors who are not in the friends list are ignored.
func Merge(friends []schemas.Friend, posts []schemas.PostEngagement) []schemas.EngagementRecord {
	index := make(map[string]int, len(friends))
	records := make([]schemas.EngagementRecord, len(friends))
	for i, f := range friends {
		index[f.ID] = i
		records[i] = schemas.EngagementRecord{FriendID: f.ID, FriendName: f.Name}
	}

	for _, post := range posts {
		ts := post.Post.CreatedAt
		touch := func(i int) {
			if ts > records[i].LastEngagement {
				records[i].LastEngagement = ts
			}
		}
		for _, r := range post.Reactions {
			if i, ok := index[r.ActorID]; ok {
				records[i].Reactions++
				if records[i].ReactionBreakdown == nil {
					records[i].ReactionBreakdown = make(map[string]int)
				}
				records[i].ReactionBreakdown[string(r.Type)]++
				touch(i)
			}
		}
		for _, c := range post.Comments {
			if i, ok := index[c.AuthorID]; ok {
				records[i].Comments++
				touch(i)
			}
		}
		for _, s := range post.Shares {
			if i, ok := index[s.ActorID]; ok {
				records[i].Shares++
				touch(i)
			}
		}
	}

	for i := range records {
		records[i].Score = Score(records[i].Reactions, records[i].Comments, records[i].Shares)
	}

	sort.SliceStable(records, func(a, b int) bool {
		return records[a].Score > records[b].Score
	})
	return records
}

// topEngagerCount caps how many leading records the summary carries.
const topEngagerCount = 5

// Summarize reduces a merge result to headline numbers for reporting. It
// expects the records in Merge's ranked order, so the first scoring entries
// become the top-engagers list.
func Summarize(records []schemas.EngagementRecord) schemas.EngagementSummary {
	summary := schemas.EngagementSummary{Friends: len(records)}
	for _, r := range records {
		summary.TotalReactions += r.Reactions
		summary.TotalComments += r.Comments
		summary.TotalShares += r.Shares
		summary.TotalScore += r.Score
		if r.Score > 0 {
			summary.ActiveCount++
			if len(summary.TopEngagers) < topEngagerCount {
				summary.TopEngagers = append(summary.TopEngagers, r)
			}
		} else {
			summary.SilentCount++
		}
		if r.Score > summary.HighestScore {
			summary.HighestScore = r.Score
		}
		for kind, n := range r.ReactionBreakdown {
			if summary.ReactionBreakdown == nil {
				summary.ReactionBreakdown = make(map[string]int)
			}
			summary.ReactionBreakdown[kind] += n
		}
	}
	if summary.Friends > 0 {
		summary.EngagementRate = float64(summary.ActiveCount) / float64(summary.Friends)
	}
	return summary
}

// Report assembles the exportable engagement payload from a merge result.
func Report(records []schemas.EngagementRecord) schemas.EngagementReport {
	return schemas.EngagementReport{
		Summary: Summarize(records),
		Friends: records,
	}
}
