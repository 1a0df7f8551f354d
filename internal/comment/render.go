package comment

import (
	"fmt"
	"strings"

	"github.com/rfcbot/rfcbot/internal/domain"
)

// IssueRef locates an issue for link building in rendered bodies.
type IssueRef struct {
	RepoURL     string // repository html url, no trailing slash
	Number      int
	PullRequest bool
}

// View is one of the four bodies the bot ever posts. Like Command it is
// a closed set; Render switches over every variant.
type View interface {
	isView()
}

// Proposed is the tracking comment: author line, reviewer checkboxes,
// concern list, quorum sentence. It is re-rendered on every sweep and
// byte-compared against the stored body, so it must be a pure function
// of its fields.
type Proposed struct {
	Author      string
	Disposition domain.Disposition
	Reviews     []ReviewLine
	Concerns    []ConcernLine
	Required    int // reviewer count needed for quorum
	Percent     int // configured minimum review percent
}

type ReviewLine struct {
	Login    string
	Reviewed bool
}

type ConcernLine struct {
	Name              string
	InitiatingComment int64
	ResolvedComment   *int64
}

// Cancelled is the terse withdrawal notice.
type Cancelled struct {
	Author string
}

// EnteringFCP announces the start of the final comment period.
type EnteringFCP struct {
	TrackingComment int64
}

// FCPComplete announces the end of the final comment period.
type FCPComplete struct {
	Disposition     domain.Disposition
	TrackingComment int64
}

func (Proposed) isView()    {}
func (Cancelled) isView()   {}
func (EnteringFCP) isView() {}
func (FCPComplete) isView() {}

// Render produces the comment body for a view. Deterministic: equal
// inputs yield byte-equal output.
func Render(ref IssueRef, v View) string {
	var b strings.Builder
	switch view := v.(type) {
	case Proposed:
		renderProposed(&b, ref, view)
	case Cancelled:
		fmt.Fprintf(&b, "@%s proposal canceled", view.Author)
	case EnteringFCP:
		b.WriteString(":bell: **This is now entering its final comment period**, as per the [review above](")
		b.WriteString(commentURL(ref, view.TrackingComment))
		b.WriteString("). :bell:")
	case FCPComplete:
		renderComplete(&b, ref, view)
	default:
		panic(fmt.Sprintf("comment: unknown view %T", v))
	}
	return b.String()
}

func renderProposed(b *strings.Builder, ref IssueRef, v Proposed) {
	fmt.Fprintf(b, "Team member @%s has proposed to %s this. ", v.Author, v.Disposition)
	b.WriteString("The next step is review by the rest of the tagged team members:\n\n")

	for _, r := range v.Reviews {
		if r.Reviewed {
			b.WriteString("* [x] @")
		} else {
			b.WriteString("* [ ] @")
		}
		b.WriteString(r.Login)
		b.WriteByte('\n')
	}

	if len(v.Concerns) == 0 {
		b.WriteString("\nNo concerns currently listed.\n")
	} else {
		b.WriteString("\nConcerns (**all concerns must be marked as resolved**):\n\n")
	}

	for _, c := range v.Concerns {
		if c.ResolvedComment != nil {
			fmt.Fprintf(b, "* ~~%s~~ resolved by %s\n", c.Name, commentURL(ref, *c.ResolvedComment))
		} else {
			fmt.Fprintf(b, "* %s (%s)\n", c.Name, commentURL(ref, c.InitiatingComment))
		}
	}

	fmt.Fprintf(b, "\nOnce %d%% of reviewers approve (currently that's %d of %d), ",
		v.Percent, v.Required, len(v.Reviews))
	b.WriteString("this will enter its final comment period. ")
	b.WriteString("If you spot a major issue that hasn't been raised at any point in this process, please speak up!\n")
}

func renderComplete(b *strings.Builder, ref IssueRef, v FCPComplete) {
	fmt.Fprintf(b, "The final comment period, with a disposition to **%s**, as per the [review above](%s), is now **complete**.",
		v.Disposition, commentURL(ref, v.TrackingComment))
	b.WriteString("\n\nAs the automated representative of the RFC process, I would like to thank the author for their work and everyone else who contributed.")

	switch v.Disposition {
	case domain.DispositionMerge:
		b.WriteString("\n\nThe RFC will be merged soon.")
	case domain.DispositionClose:
		b.WriteString("\n\nThe RFC is now closed.")
	case domain.DispositionPostpone:
		b.WriteString("\n\nThe RFC is now postponed.")
	}
}

func commentURL(ref IssueRef, commentID int64) string {
	kind := "issues"
	if ref.PullRequest {
		kind = "pull"
	}
	return fmt.Sprintf("%s/%s/%d#issuecomment-%d", ref.RepoURL, kind, ref.Number, commentID)
}
