package app

import (
	"context"
	"log"
	"sort"

	"classquiz-service/internal/config"
	"classquiz-service/internal/domain"
)

// LeaderboardService derives the motivational views from durable XP state:
// group rankings, the nemesis comparison and the neighborhood window, plus
// the once-per-session daily login bonus.
type LeaderboardService struct {
	roster   RosterStore
	attempts AttemptStore
	scoring  config.Scoring
	feed     *GroupFeed
}

func NewLeaderboardService(roster RosterStore, attempts AttemptStore, scoring config.Scoring, feed *GroupFeed) *LeaderboardService {
	return &LeaderboardService{roster: roster, attempts: attempts, scoring: scoring, feed: feed}
}

// DashboardView aggregates everything the student dashboard renders.
type DashboardView struct {
	StudentID    string                    `json:"studentId"`
	Name         string                    `json:"name"`
	XP           int                       `json:"xp"`
	BonusGranted bool                      `json:"bonusGranted"`
	Nemesis      *domain.NemesisView       `json:"nemesis,omitempty"`
	Window       []domain.LeaderboardEntry `json:"window"`
}

// Dashboard builds the student's dashboard. The first call in a session
// grants the daily login bonus; later calls in the same session do not.
func (s *LeaderboardService) Dashboard(ctx context.Context, studentID string) (DashboardView, error) {
	student, err := s.roster.Student(ctx, studentID)
	if err != nil {
		return DashboardView{}, err
	}
	if !student.Role.CanTakeQuizzes() {
		return DashboardView{}, domain.ErrRoleDenied
	}

	first, err := s.attempts.ClaimDailyBonus(ctx, studentID)
	if err != nil {
		return DashboardView{}, err
	}
	if first {
		if err := s.roster.AwardXP(ctx, studentID, s.scoring.DailyLoginBonus); err != nil {
			return DashboardView{}, err
		}
		student.XP += s.scoring.DailyLoginBonus
		s.publishGroup(ctx, student.GroupID)
	}

	nemesis, err := s.NemesisComparison(ctx, studentID)
	if err != nil {
		return DashboardView{}, err
	}
	window, err := s.NeighborhoodWindow(ctx, studentID)
	if err != nil {
		return DashboardView{}, err
	}

	return DashboardView{
		StudentID:    student.ID,
		Name:         student.Name,
		XP:           student.XP,
		BonusGranted: first,
		Nemesis:      nemesis,
		Window:       window,
	}, nil
}

// RankGroup returns the group's students ordered by descending XP. Equal XP
// ties break by name, then id, so the ordering is deterministic.
func (s *LeaderboardService) RankGroup(ctx context.Context, groupID string) (domain.Leaderboard, error) {
	if _, err := s.roster.Group(ctx, groupID); err != nil {
		return domain.Leaderboard{}, err
	}
	members, err := s.roster.GroupMembers(ctx, groupID)
	if err != nil {
		return domain.Leaderboard{}, err
	}

	sort.Slice(members, func(i, j int) bool {
		if members[i].XP != members[j].XP {
			return members[i].XP > members[j].XP
		}
		if members[i].Name != members[j].Name {
			return members[i].Name < members[j].Name
		}
		return members[i].ID < members[j].ID
	})

	entries := make([]domain.LeaderboardEntry, 0, len(members))
	for i, m := range members {
		entries = append(entries, domain.LeaderboardEntry{
			StudentID: m.ID,
			Name:      m.Name,
			XP:        m.XP,
			Position:  i + 1,
		})
	}
	return domain.Leaderboard{GroupID: groupID, Entries: entries}, nil
}

// NemesisComparison returns the rivalry view, or nil when no nemesis is set.
func (s *LeaderboardService) NemesisComparison(ctx context.Context, studentID string) (*domain.NemesisView, error) {
	student, err := s.roster.Student(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if student.NemesisID == nil {
		return nil, nil
	}
	nemesis, err := s.roster.Student(ctx, *student.NemesisID)
	if err != nil {
		return nil, err
	}
	delta := student.XP - nemesis.XP
	if delta < 0 {
		delta = -delta
	}
	return &domain.NemesisView{
		TargetName: nemesis.Name,
		XPDelta:    delta,
		Ahead:      student.XP >= nemesis.XP,
	}, nil
}

// NeighborhoodWindow returns the compact leaderboard slice around the
// student: themselves, the neighbors directly above and below (when they
// exist) and the nemesis, deduplicated by id. A student without a group sees
// only themselves.
func (s *LeaderboardService) NeighborhoodWindow(ctx context.Context, studentID string) ([]domain.LeaderboardEntry, error) {
	student, err := s.roster.Student(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if student.GroupID == nil {
		return []domain.LeaderboardEntry{{StudentID: student.ID, Name: student.Name, XP: student.XP, Position: 1}}, nil
	}

	board, err := s.RankGroup(ctx, *student.GroupID)
	if err != nil {
		return nil, err
	}

	pos := -1
	for i, e := range board.Entries {
		if e.StudentID == studentID {
			pos = i
			break
		}
	}
	if pos == -1 {
		return nil, domain.ErrStudentNotFound
	}

	keep := map[string]struct{}{studentID: {}}
	if pos > 0 {
		keep[board.Entries[pos-1].StudentID] = struct{}{}
	}
	if pos+1 < len(board.Entries) {
		keep[board.Entries[pos+1].StudentID] = struct{}{}
	}
	if student.NemesisID != nil {
		keep[*student.NemesisID] = struct{}{}
	}

	window := make([]domain.LeaderboardEntry, 0, len(keep))
	for _, e := range board.Entries {
		if _, ok := keep[e.StudentID]; ok {
			window = append(window, e)
		}
	}
	return window, nil
}

// SetNemesis designates a rival. The candidate must be another student in the
// caller's group; an empty candidate always clears. On rejection the existing
// nemesis is left unchanged.
func (s *LeaderboardService) SetNemesis(ctx context.Context, studentID, candidateID string) error {
	student, err := s.roster.Student(ctx, studentID)
	if err != nil {
		return err
	}
	if !student.Role.CanTakeQuizzes() {
		return domain.ErrRoleDenied
	}

	if candidateID == "" {
		return s.roster.SetNemesis(ctx, studentID, nil)
	}
	if candidateID == studentID {
		return domain.ErrInvalidNemesis
	}
	candidate, err := s.roster.Student(ctx, candidateID)
	if err != nil {
		return domain.ErrInvalidNemesis
	}
	if student.GroupID == nil || candidate.GroupID == nil || *student.GroupID != *candidate.GroupID {
		return domain.ErrInvalidNemesis
	}
	return s.roster.SetNemesis(ctx, studentID, &candidateID)
}

// Subscribe returns a channel that receives leaderboard updates for a group.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *LeaderboardService) Subscribe(ctx context.Context, groupID string) (<-chan domain.Leaderboard, func(), error) {
	board, err := s.RankGroup(ctx, groupID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.feed.Subscribe(groupID)
	s.feed.Publish(board)
	return ch, cancel, nil
}

// publishGroup recomputes and broadcasts a group's leaderboard after an XP
// mutation. Broadcasting is best effort; a failed snapshot only logs.
func (s *LeaderboardService) publishGroup(ctx context.Context, groupID *string) {
	if groupID == nil {
		return
	}
	board, err := s.RankGroup(ctx, *groupID)
	if err != nil {
		log.Printf("leaderboard snapshot for group %s: %v", *groupID, err)
		return
	}
	s.feed.Publish(board)
}
