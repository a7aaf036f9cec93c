package synth

import (
	"fmt"
	"strings"

	"github.com/ibeckermayer/proofshot/internal/types"
)

const systemPrompt = "You write short, believable customer testimonials about a product. " +
	"Write as a real customer in the first person. Never mention that you are an AI, " +
	"never add commentary about the task, and output only the requested text."

// BuildPrompt constructs the system and user parts for one request
func BuildPrompt(req types.SynthesisRequest, budget int) Prompt {
	var sb strings.Builder

	// Product context
	sb.WriteString("## Product\n")
	if req.Context.CompanyNameHint != "" {
		sb.WriteString(fmt.Sprintf("Company: %s\n", req.Context.CompanyNameHint))
	}
	if req.Context.ProductNameHint != "" {
		sb.WriteString(fmt.Sprintf("Product: %s\n", req.Context.ProductNameHint))
	}
	sb.WriteString(fmt.Sprintf("Description: %s\n\n", strings.TrimSpace(req.Context.Description)))

	tone := strings.TrimSpace(string(req.Tone))
	if tone == "" {
		tone = "positive"
	}

	// Platform shape
	sb.WriteString("## Task\n\n")
	switch req.Platform {
	case types.PlatformCommentFeed:
		sb.WriteString("Write a comment a customer would leave under the company's social media post.\n")
		sb.WriteString("Keep it conversational and include 1-2 fitting emoji. Do not use hashtags.\n")
	case types.PlatformMicroPost:
		sb.WriteString("Write a short public post a customer would publish about the product.\n")
		sb.WriteString("Keep it casual and terse. Do not use hashtags.\n")
	case types.PlatformReview:
		sb.WriteString("Write a product review.\n")
		sb.WriteString("The first line is a short review title. Then leave a blank line and write the review body.\n")
		sb.WriteString("Mention 2-3 concrete things about the product you liked or noticed.\n")
	case types.PlatformEmail:
		sb.WriteString("Write an email a customer sends to the company about the product.\n")
		sb.WriteString("The first line is the subject line. Then leave a blank line and write the email body.\n")
		if name := strings.TrimSpace(req.SenderNameHint); name != "" {
			sb.WriteString(fmt.Sprintf("Sign the email as %s.\n", name))
		} else {
			sb.WriteString("Sign the email with a first name.\n")
		}
	case types.PlatformHandwritten:
		sb.WriteString("Write a short handwritten thank-you note from a customer.\n")
		sb.WriteString("Make it personal and emotional, the way people write on a card.\n")
	}

	sb.WriteString(fmt.Sprintf("Tone: %s\n", tone))
	sb.WriteString(fmt.Sprintf("Stay under %d characters.\n", budget))
	sb.WriteString("Respond with the text only. No quotes around it, no labels, no explanation.\n")

	return Prompt{System: systemPrompt, User: sb.String()}
}
