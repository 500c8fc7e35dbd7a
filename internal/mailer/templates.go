package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"
)

const layout = `<div style="font-family: sans-serif; max-width: 600px; margin: 0 auto;">
<h2>{{.Title}}</h2>
<p>{{.Greeting}},</p>
{{range .Lines}}<p>{{.}}</p>
{{end}}{{if .Details}}<table style="border-collapse: collapse; margin: 16px 0;">
{{range .Details}}<tr><td style="padding: 4px 12px 4px 0; color: #64748b;"><strong>{{.Label}}:</strong></td><td>{{.Value}}</td></tr>
{{end}}</table>
{{end}}{{range .Links}}<p><a href="{{.URL}}" style="background-color: {{.Color}}; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px;">{{.Label}}</a></p>
<p style="font-size: 0.85em; color: #666;">{{.URL}}</p>
{{end}}<hr style="border: none; border-top: 1px solid #ddd; margin-top: 30px;">
<p style="color: #888; font-size: 0.8em; text-align: center;">College Management System</p>
</div>`

var layoutTmpl = template.Must(template.New("mail").Parse(layout))

type detail struct {
	Label string
	Value string
}

type link struct {
	Label string
	URL   string
	Color template.CSS
}

type page struct {
	Title    string
	Greeting string
	Lines    []string
	Details  []detail
	Links    []link
}

func render(p page) string {
	var buf bytes.Buffer
	if err := layoutTmpl.Execute(&buf, p); err != nil {
		// the template is static; this only fails on a programming error
		panic(err)
	}
	return buf.String()
}

func formatTime(t time.Time) string {
	return t.Format("02 Jan 2006 15:04")
}

func formatAmount(v float64) string {
	return fmt.Sprintf("₹%.2f", v)
}

func OTPMessage(to, otp string) Message {
	return Message{
		To:      to,
		Subject: "Your Verification OTP - College Management System",
		HTML: render(page{
			Title:    "Email Verification",
			Greeting: "Hello",
			Lines: []string{
				"Your One-Time Password (OTP) for verification is: " + otp,
				"This OTP is valid for 10 minutes.",
				"If you did not request this, please ignore this email.",
			},
		}),
	}
}

type GatepassDetails struct {
	StudentName string
	From        time.Time
	To          time.Time
	Reason      string
}

func (d GatepassDetails) rows() []detail {
	return []detail{
		{Label: "From", Value: formatTime(d.From)},
		{Label: "To", Value: formatTime(d.To)},
		{Label: "Reason", Value: d.Reason},
	}
}

func GatepassSubmittedMessage(to string, d GatepassDetails) Message {
	return Message{
		To:      to,
		Subject: "Gatepass Request Submitted",
		HTML: render(page{
			Title:    "Gatepass Request Submitted",
			Greeting: "Dear " + d.StudentName,
			Lines: []string{
				"Your gatepass request has been successfully submitted.",
				"Status: Pending Parent Approval",
			},
			Details: d.rows(),
		}),
	}
}

func GatepassParentRequestMessage(to string, d GatepassDetails, approveURL, rejectURL string) Message {
	return Message{
		To:      to,
		Subject: "Gatepass Request Approval for " + d.StudentName,
		HTML: render(page{
			Title:    "Gatepass Request Approval",
			Greeting: "Dear Parent/Guardian",
			Lines: []string{
				"Your ward " + d.StudentName + " has requested a gatepass.",
				"Please review the request and take action. These links expire and can be used once.",
			},
			Details: d.rows(),
			Links: []link{
				{Label: "Approve Request", URL: approveURL, Color: "#28a745"},
				{Label: "Reject Request", URL: rejectURL, Color: "#dc3545"},
			},
		}),
	}
}

func GatepassStatusMessage(to, status, reason string) Message {
	lines := []string{"Your gatepass request status has been updated to: " + status}
	if reason != "" {
		lines = append(lines, "Reason: "+reason)
	}
	lines = append(lines, "Please log in to the portal for more details.")
	return Message{
		To:      to,
		Subject: "Gatepass Request Update: " + status,
		HTML: render(page{
			Title:    "Gatepass Request Update",
			Greeting: "Hello",
			Lines:    lines,
		}),
	}
}

type FineDetails struct {
	StudentName string
	Department  string
	Amount      float64
	Reason      string
	Status      string
	ImposedAt   time.Time
}

func FineImposedMessage(to, portalURL string, d FineDetails) Message {
	msg := Message{
		To:      to,
		Subject: "Notice: Fine Imposed - " + strings.ToUpper(d.Department) + " Department",
	}
	p := page{
		Title:    "Official Fine Notice",
		Greeting: "Dear " + d.StudentName,
		Lines: []string{
			"A fine has been imposed on your account by the " + d.Department + " department.",
			"Please log in to your student portal to pay this fine.",
		},
		Details: []detail{
			{Label: "Amount", Value: formatAmount(d.Amount)},
			{Label: "Reason", Value: d.Reason},
			{Label: "Date", Value: d.ImposedAt.Format("02 Jan 2006")},
			{Label: "Status", Value: strings.ToUpper(d.Status)},
		},
	}
	if portalURL != "" {
		p.Links = []link{{Label: "Login to Portal", URL: portalURL, Color: "#4f46e5"}}
	}
	msg.HTML = render(p)
	return msg
}

type AllotmentDetails struct {
	StudentName string
	Status      string
	Reason      string
	RoomNumber  string
	Block       string
	Floor       int
}

func AllotmentDecisionMessage(to string, d AllotmentDetails) Message {
	var lines []string
	switch d.Status {
	case "approved":
		lines = append(lines, "Your hostel room allotment request has been approved.")
	case "rejected":
		lines = append(lines, "Your hostel room allotment request has been rejected.")
		if d.Reason != "" {
			lines = append(lines, "Reason: "+d.Reason)
		}
	default:
		lines = append(lines, "Your hostel room allotment status is: "+d.Status+".")
	}
	var details []detail
	if d.Status == "approved" && d.RoomNumber != "" {
		details = []detail{
			{Label: "Room", Value: d.RoomNumber},
			{Label: "Block", Value: d.Block},
			{Label: "Floor", Value: fmt.Sprintf("%d", d.Floor)},
		}
	}
	lines = append(lines, "Please log in to the portal for more details.")
	return Message{
		To:      to,
		Subject: "Hostel room allotment " + d.Status,
		HTML: render(page{
			Title:    "Hostel Allotment Update",
			Greeting: "Dear " + d.StudentName,
			Lines:    lines,
			Details:  details,
		}),
	}
}
