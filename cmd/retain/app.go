package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	rerrors "github.com/hrygo/retain/internal/errors"
	"github.com/hrygo/retain/internal/profile"
	"github.com/hrygo/retain/internal/timezone"
	"github.com/hrygo/retain/plugin/evaluator"
	"github.com/hrygo/retain/store"
)

// annotationNoStore marks commands that run without opening the database.
const annotationNoStore = "retain/no-store"

// app is the state shared by every command of one invocation.
type app struct {
	config  *viper.Viper
	profile *profile.Profile
	store   *store.Store
	logger  *slog.Logger
	now     func() time.Time
	// location decides the review date.
	location *time.Location

	// newEvaluator builds the challenge evaluator when the profile enables it.
	newEvaluator func(p *profile.Profile) (*evaluator.Evaluator, error)

	in *bufio.Reader
}

func newApp() *app {
	return &app{
		config: viper.New(),
		now:    time.Now,
		newEvaluator: func(p *profile.Profile) (*evaluator.Evaluator, error) {
			return evaluator.New(evaluator.ConfigFromProfile(p))
		},
	}
}

func (a *app) close() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		slog.Warn("failed to close store", slog.String("error", err.Error()))
	}
}

// today is the review date: the calendar date in the configured timezone.
func (a *app) today() time.Time {
	return timezone.Today(a.now(), a.location)
}

// prompter reads answers from the command's input.
func (a *app) prompter(cmd *cobra.Command) *prompter {
	if a.in == nil {
		a.in = bufio.NewReader(cmd.InOrStdin())
	}
	return &prompter{in: a.in, out: cmd.OutOrStdout()}
}

type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// ask prints the question and returns the trimmed answer line.
// It returns io.EOF once the input is exhausted.
func (p *prompter) ask(question string) (string, error) {
	fmt.Fprint(p.out, question)
	line, err := p.in.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// askRequired repeats the question until a non-empty answer is given.
func (p *prompter) askRequired(question string) (string, error) {
	for {
		answer, err := p.ask(question)
		if err != nil {
			return "", err
		}
		if answer != "" {
			return answer, nil
		}
	}
}

func (p *prompter) confirm(question string) (bool, error) {
	answer, err := p.ask(question + " (y/N): ")
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes", nil
}

// readBlock reads lines until one holding a single "." or the end of input.
func (p *prompter) readBlock(intro string) (string, error) {
	fmt.Fprintln(p.out, intro)
	var lines []string
	for {
		line, err := p.in.ReadString('\n')
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "." {
			break
		}
		if line != "" {
			lines = append(lines, trimmed)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return strings.Join(lines, "\n"), nil
}

func parseID(raw string) (int32, error) {
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || id <= 0 {
		return 0, rerrors.InvalidArgument("invalid item id %q", raw)
	}
	return int32(id), nil
}

// itemFilter holds the filter flags shared by review, due and list.
type itemFilter struct {
	kind     string
	language string
	mcqType  string
	tags     []string
}

func (f *itemFilter) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.kind, "kind", "", `only items of this kind: "question", "challenge" or "mcq"`)
	cmd.Flags().StringSliceVarP(&f.tags, "tag", "t", nil, "only items carrying every given tag")
	cmd.Flags().StringVar(&f.language, "language", "", `only challenges in this language: "python" or "javascript"`)
	cmd.Flags().StringVar(&f.mcqType, "type", "", `only mcq items of this type: "mcq" or "true_false"`)
}

func (f *itemFilter) parse() (kind *store.Kind, language *store.Language, mcqType *store.MCQType, err error) {
	if f.kind != "" {
		k := store.Kind(strings.ToLower(f.kind))
		if !k.Valid() {
			return nil, nil, nil, rerrors.InvalidArgument("unknown kind %q", f.kind)
		}
		kind = &k
	}
	if f.language != "" {
		l := store.Language(strings.ToLower(f.language))
		if !l.Valid() {
			return nil, nil, nil, rerrors.InvalidArgument("unknown language %q", f.language)
		}
		language = &l
	}
	if f.mcqType != "" {
		t := store.MCQType(strings.ToLower(f.mcqType))
		if !t.Valid() {
			return nil, nil, nil, rerrors.InvalidArgument("unknown mcq type %q", f.mcqType)
		}
		mcqType = &t
	}
	return kind, language, mcqType, nil
}

func (f *itemFilter) findDue(asOf time.Time) (*store.FindDue, error) {
	kind, language, mcqType, err := f.parse()
	if err != nil {
		return nil, err
	}
	return &store.FindDue{
		AsOf:     asOf,
		Kind:     kind,
		Language: language,
		MCQType:  mcqType,
		Tags:     store.NormalizeTags(f.tags),
	}, nil
}

func (f *itemFilter) findItem() (*store.FindItem, error) {
	kind, language, mcqType, err := f.parse()
	if err != nil {
		return nil, err
	}
	return &store.FindItem{
		Kind:     kind,
		Language: language,
		MCQType:  mcqType,
		Tags:     store.NormalizeTags(f.tags),
	}, nil
}
