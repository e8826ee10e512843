package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func TestNewFeedback_ForumDefaultsAndTags(t *testing.T) {
	fb, err := NewFeedback("f1", "u1", Draft{
		Kind:    KindForum,
		ForumID: "forum-1",
		Content: "  Great job! #awesome #teamwork  ",
	}, fixedNow)
	if err != nil {
		t.Fatalf("NewFeedback: %v", err)
	}
	if fb.Content != "Great job! #awesome #teamwork" {
		t.Fatalf("content not trimmed: %q", fb.Content)
	}
	if got := fb.TagNames(); strings.Join(got, ",") != "awesome,teamwork" {
		t.Fatalf("tags = %v", got)
	}
	if *fb.Category != CategoryOther || *fb.Priority != PriorityMedium || *fb.Status != StatusPending {
		t.Fatalf("unexpected defaults: %v %v %v", *fb.Category, *fb.Priority, *fb.Status)
	}
	if fb.ModeratorID != nil || fb.RecipientID != nil {
		t.Fatalf("forum record must not carry moderator or recipient")
	}
	if !fb.CreatedAt.Equal(fixedNow) || !fb.UpdatedAt.Equal(fixedNow) {
		t.Fatalf("timestamps not taken from clock")
	}
	if err := fb.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestNewFeedback_ShapeErrors(t *testing.T) {
	content := "this is long enough content"
	cases := []struct {
		name  string
		draft Draft
	}{
		{"forum without forum", Draft{Kind: KindForum, Content: content}},
		{"forum with recipient", Draft{Kind: KindForum, ForumID: "f", RecipientID: "u2", Content: content}},
		{"p2p without recipient", Draft{Kind: KindP2P, Content: content}},
		{"p2p with forum", Draft{Kind: KindP2P, ForumID: "f", RecipientID: "u2", Content: content}},
		{"p2p with category", Draft{Kind: KindP2P, RecipientID: "u2", Category: CategoryBug, Content: content}},
		{"unknown kind", Draft{Kind: "other", ForumID: "f", Content: content}},
		{"bad priority", Draft{Kind: KindForum, ForumID: "f", Priority: "critical", Content: content}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewFeedback("id", "u1", tc.draft, fixedNow); !errors.Is(err, ErrInvalidRecordShape) {
				t.Fatalf("want ErrInvalidRecordShape, got %v", err)
			}
		})
	}
}

func TestNewFeedback_ShapeCheckedBeforeContent(t *testing.T) {
	_, err := NewFeedback("id", "u1", Draft{Kind: KindP2P, Content: "short"}, fixedNow)
	if !errors.Is(err, ErrInvalidRecordShape) {
		t.Fatalf("want shape error first, got %v", err)
	}
}

func TestValidateContent_Bounds(t *testing.T) {
	cases := []struct {
		in   string
		want error
	}{
		{strings.Repeat("a", 14), ErrInvalidContent},
		{strings.Repeat("a", 15), nil},
		{"   " + strings.Repeat("a", 14) + "   ", ErrInvalidContent},
		{strings.Repeat("é", 500), nil},
		{strings.Repeat("a", 501), ErrInvalidContent},
	}
	for _, tc := range cases {
		if err := ValidateContent(tc.in); !errors.Is(err, tc.want) {
			t.Fatalf("len=%d: want %v, got %v", len(tc.in), tc.want, err)
		}
	}
}

func TestNewFeedback_P2PHasNoModerationFields(t *testing.T) {
	fb, err := NewFeedback("f2", "u1", Draft{
		Kind:        KindP2P,
		RecipientID: "u2",
		Content:     "thanks for the thorough review",
		Private:     true,
	}, fixedNow)
	if err != nil {
		t.Fatalf("NewFeedback: %v", err)
	}
	if fb.Category != nil || fb.Priority != nil || fb.Status != nil || fb.ModeratorID != nil || fb.ForumID != nil {
		t.Fatalf("p2p record carries forum-only fields: %+v", fb)
	}
	tg, err := fb.Target()
	if err != nil {
		t.Fatalf("Target: %v", err)
	}
	if pt, ok := tg.(PeerTarget); !ok || pt.RecipientID != "u2" {
		t.Fatalf("unexpected target %#v", tg)
	}
}

func TestValidate_RejectsTamperedP2PRow(t *testing.T) {
	fb, _ := NewFeedback("f3", "u1", Draft{Kind: KindP2P, RecipientID: "u2", Content: "well structured proposal"}, fixedNow)
	st := StatusResolved
	fb.Status = &st
	if err := fb.Validate(); !errors.Is(err, ErrInvalidRecordShape) {
		t.Fatalf("want ErrInvalidRecordShape, got %v", err)
	}
}

func TestSetTarget_SwitchesKindAndClears(t *testing.T) {
	fb, _ := NewFeedback("f4", "u1", Draft{Kind: KindForum, ForumID: "forum", Content: "switching kinds for a test"}, fixedNow)
	fb.SetTarget(PeerTarget{RecipientID: "u9"})
	if fb.Kind != KindP2P || fb.ForumID != nil || fb.Status != nil {
		t.Fatalf("target not applied: %+v", fb)
	}
	if err := fb.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestForumTarget_KeepsModerator(t *testing.T) {
	fb := &Feedback{Content: "moderated forum feedback"}
	fb.SetTarget(ForumTarget{ForumID: "f", Status: StatusResolved, ModeratorID: "admin"})
	tg, err := fb.Target()
	if err != nil {
		t.Fatalf("Target: %v", err)
	}
	ft := tg.(ForumTarget)
	if ft.Status != StatusResolved || ft.ModeratorID != "admin" || ft.Category != CategoryOther {
		t.Fatalf("unexpected forum target %+v", ft)
	}
}

func TestReactions_AddRemoveRoundTrip(t *testing.T) {
	start := Reactions{"🎉": 2}
	added := start.Add("👍")
	if added["👍"] != 1 || added["🎉"] != 2 {
		t.Fatalf("after add: %v", added)
	}
	if _, ok := start["👍"]; ok {
		t.Fatalf("Add mutated its receiver")
	}
	back := added.Remove("👍")
	if len(back) != len(start) || back["🎉"] != 2 {
		t.Fatalf("round trip mismatch: %v", back)
	}
	if _, ok := back["👍"]; ok {
		t.Fatalf("entry must be removed at zero")
	}
}

func TestReactions_RemoveMissingIsNoop(t *testing.T) {
	r := Reactions{"🔥": 1}
	got := r.Remove("👎")
	if len(got) != 1 || got["🔥"] != 1 {
		t.Fatalf("unexpected %v", got)
	}
	var empty Reactions
	if got := empty.Remove("👍"); len(got) != 0 {
		t.Fatalf("nil reactions: %v", got)
	}
}

func TestReactions_Decrement(t *testing.T) {
	got := Reactions{"👍": 3}.Remove("👍")
	if got["👍"] != 2 {
		t.Fatalf("want 2, got %d", got["👍"])
	}
}

func TestValidateEmoji(t *testing.T) {
	if err := ValidateEmoji("👍"); err != nil {
		t.Fatalf("unexpected %v", err)
	}
	for _, bad := range []string{"", "  ", strings.Repeat("x", MaxEmojiLength+1)} {
		if err := ValidateEmoji(bad); !errors.Is(err, ErrInvalidReaction) {
			t.Fatalf("%q: want ErrInvalidReaction, got %v", bad, err)
		}
	}
}

func TestReactionCounts_SkipsZeroRows(t *testing.T) {
	fb := Feedback{Reactions: []FeedbackReaction{{Emoji: "👍", Count: 2}, {Emoji: "👎", Count: 0}}}
	got := fb.ReactionCounts()
	if len(got) != 1 || got["👍"] != 2 {
		t.Fatalf("unexpected %v", got)
	}
}
