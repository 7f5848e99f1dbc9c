package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"rozgar-signup/internal/common/i18n"
	"rozgar-signup/internal/models"
	chatbotsession "rozgar-signup/internal/signup/chatbot-session"
	"rozgar-signup/internal/signup/controller"
	formsession "rozgar-signup/internal/signup/form-session"
	voicesession "rozgar-signup/internal/signup/voice-session"
)

var formPrompts = []struct {
	field  string
	prompt string
}{
	{formsession.FieldRole, "Role (worker/employer)"},
	{formsession.FieldName, "Name"},
	{formsession.FieldPhone, "Phone number"},
	{formsession.FieldPassword, "Password"},
	{formsession.FieldArea, "Area"},
	{formsession.FieldDistrict, "District"},
	{formsession.FieldState, "State"},
	{formsession.FieldJobType, "Job type"},
	{formsession.FieldDailyWage, "Expected daily wage"},
	{formsession.FieldSkills, "Skills (comma separated)"},
}

// driver runs one registration surface over a line oriented terminal.
type driver struct {
	lines  <-chan string
	out    io.Writer
	ctrl   *controller.Controller
	locale *i18n.Locale
}

func newDriver(in io.Reader, out io.Writer, ctrl *controller.Controller, locale *i18n.Locale) *driver {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()
	return &driver{lines: lines, out: out, ctrl: ctrl, locale: locale}
}

func (d *driver) run(ctx context.Context, strategy models.Strategy, login bool) error {
	switch strategy {
	case models.StrategyForm:
		return d.form(ctx, login)
	case models.StrategyChatbot:
		return d.chatbot(ctx)
	case models.StrategyVoice:
		return d.voice(ctx)
	default:
		return fmt.Errorf("unknown strategy %q", strategy)
	}
}

// ask prints prompt and waits for one line. ok is false once input ends or
// ctx is done.
func (d *driver) ask(ctx context.Context, prompt string) (string, bool) {
	if prompt != "" {
		fmt.Fprintf(d.out, "%s: ", prompt)
	}
	select {
	case <-ctx.Done():
		return "", false
	case line, ok := <-d.lines:
		return strings.TrimSpace(line), ok
	}
}

func (d *driver) form(ctx context.Context, login bool) error {
	s, err := d.ctrl.OpenForm()
	if err != nil {
		return err
	}
	prompts := formPrompts
	if login {
		if err := s.SetMode(formsession.ModeLogin); err != nil {
			return err
		}
		prompts = []struct {
			field  string
			prompt string
		}{
			{formsession.FieldPhone, "Phone number"},
			{formsession.FieldPassword, "Password"},
		}
	}

	for {
		for _, p := range prompts {
			if p.field == formsession.FieldJobType || p.field == formsession.FieldDailyWage || p.field == formsession.FieldSkills {
				if s.Field(formsession.FieldRole) == string(models.RoleEmployer) {
					continue
				}
			}
			label := p.prompt
			if cur := s.Field(p.field); cur != "" && p.field != formsession.FieldPassword {
				label = fmt.Sprintf("%s [%s]", p.prompt, cur)
			}
			v, ok := d.ask(ctx, label)
			if !ok {
				return ctx.Err()
			}
			if v == "" {
				continue
			}
			if err := s.UpdateField(p.field, v); err != nil {
				fmt.Fprintln(d.out, err)
			}
		}

		if _, err := s.Submit(ctx); err == nil {
			return nil
		}
		fmt.Fprintln(d.out, s.ErrorMessage())
	}
}

func (d *driver) chatbot(ctx context.Context) error {
	s, err := d.ctrl.OpenChatbot()
	if err != nil {
		return err
	}
	for _, t := range s.Turns() {
		fmt.Fprintf(d.out, "> %s\n", t.Text)
	}
	fmt.Fprintln(d.out, "(type /done to finish)")

	for {
		text, ok := d.ask(ctx, "you")
		if !ok {
			return ctx.Err()
		}
		if text == "/done" {
			if !s.CanComplete() {
				fmt.Fprintln(d.out, "The assistant still needs more details.")
				continue
			}
			if _, err := s.CompleteRegistration(ctx); err != nil {
				fmt.Fprintln(d.out, s.ErrorMessage())
				continue
			}
			return nil
		}
		if text == "" {
			continue
		}
		turn, err := s.SendTurn(ctx, text)
		if err != nil {
			fmt.Fprintln(d.out, s.ErrorMessage())
			continue
		}
		d.printReply(s, turn)
	}
}

func (d *driver) printReply(s *chatbotsession.Session, turn *models.ConversationTurn) {
	if turn != nil {
		fmt.Fprintf(d.out, "> %s\n", turn.Text)
	}
	if s.CanComplete() {
		fmt.Fprintln(d.out, "(all details collected, type /done to register)")
	}
}

func (d *driver) voice(ctx context.Context) error {
	s, err := d.ctrl.OpenVoice()
	if err != nil {
		return err
	}

	for {
		if _, ok := d.ask(ctx, "Press Enter to start recording"); !ok {
			return ctx.Err()
		}
		if err := s.StartRecording(ctx); err != nil {
			fmt.Fprintln(d.out, s.ErrorMessage())
			continue
		}
		if _, ok := d.ask(ctx, "Recording, press Enter to stop"); !ok {
			return ctx.Err()
		}
		fmt.Fprintln(d.out, d.locale.T(i18n.KeyProcessing))
		r, err := s.StopRecording(ctx)
		if err != nil {
			fmt.Fprintln(d.out, s.ErrorMessage())
		}
		if s.State() != voicesession.StateReviewing {
			continue
		}
		if done, err := d.review(ctx, s, r); err != nil || done {
			return err
		}
	}
}

// review shows the extracted record and either submits it or retries.
func (d *driver) review(ctx context.Context, s *voicesession.Session, r *models.Registrant) (bool, error) {
	if r != nil {
		fmt.Fprintf(d.out, "Transcript: %s\n", s.Transcript())
		fmt.Fprintf(d.out, "Name: %s  Phone: %s  Role: %s  Job: %s  Wage: %d\n",
			r.Name, r.PhoneNumber, r.Role, r.JobType, r.ExpectedDailyWage)
	}
	if !s.CanComplete() {
		if notice := s.IncompleteNotice(); notice != "" {
			fmt.Fprintln(d.out, notice)
		}
		return false, s.Retry()
	}

	for {
		answer, ok := d.ask(ctx, "Register with these details? (y/r)")
		if !ok {
			return false, ctx.Err()
		}
		switch strings.ToLower(answer) {
		case "y", "yes", "":
			if _, err := s.CompleteRegistration(ctx); err != nil {
				fmt.Fprintln(d.out, s.ErrorMessage())
				continue
			}
			return true, nil
		case "r":
			return false, s.Retry()
		}
	}
}
