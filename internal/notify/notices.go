package notify

import (
	"fmt"
	"strings"

	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/models"
)

// SubmissionCompleted tells staff that a sponsor finished uploading. Files are
// itemized per category in the fixed category order.
func SubmissionCompleted(to []string, sub *models.Submission, files []models.SubmissionFile) Message {
	counts := make(map[models.Category]int)
	for _, f := range files {
		counts[f.Category]++
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Sponsor: %s <%s>\n", sub.SponsorName, sub.SponsorEmail)
	if sub.SponsorPhone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", sub.SponsorPhone)
	}
	fmt.Fprintf(&b, "Respondent: %s\n", sub.RespondentName)
	if sub.RespondentCaseNumber != "" {
		fmt.Fprintf(&b, "Case number: %s\n", sub.RespondentCaseNumber)
	}
	fmt.Fprintf(&b, "\nDocuments (%d):\n", len(files))
	for _, c := range models.Categories {
		if n := counts[c]; n > 0 {
			fmt.Fprintf(&b, "  - %s: %d\n", c.Label(), n)
		}
	}
	if sub.SubmittedAt != nil {
		fmt.Fprintf(&b, "\nSubmitted at %s\n", sub.SubmittedAt.UTC().Format("2006-01-02 15:04 MST"))
	}

	return Message{
		To:      to,
		Subject: fmt.Sprintf("Sponsor documents submitted: %s for %s", sub.SponsorName, sub.RespondentName),
		Body:    b.String(),
	}
}

// CollectionInvitation asks the sponsor to upload documents at link.
func CollectionInvitation(sub *models.Submission, link string) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", sub.SponsorName)
	fmt.Fprintf(&b, "We need supporting documents from you as the sponsor of %s.\n", sub.RespondentName)
	b.WriteString("Please upload them using your personal link:\n\n")
	b.WriteString(link + "\n\n")
	b.WriteString("Keep this link private. Anyone who has it can add documents to your file.\n")
	return Message{
		To:      []string{sub.SponsorEmail},
		Subject: "Documents requested for " + sub.RespondentName,
		Body:    b.String(),
	}
}
