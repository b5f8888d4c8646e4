package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var wizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Ask what to do, then run a search or a profile scrape",
	Args:  cobra.NoArgs,
	RunE:  runWizard,
}

func init() {
	rootCmd.AddCommand(wizardCmd)
}

type wizardAction string

const (
	actionSearch  wizardAction = "search"
	actionProfile wizardAction = "profile"
	actionExit    wizardAction = "exit"
)

// wizardTask is one round of answers.
type wizardTask struct {
	Action   wizardAction
	Query    string // search query or profile URL
	MaxPages int
	Headless bool
}

// prompter reads answers line by line. A closed input answers every
// question with its default, and with exit for the action.
type prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewScanner(in), out: out}
}

func (p *prompter) line(question string) (string, bool) {
	fmt.Fprint(p.out, question)
	if !p.in.Scan() {
		fmt.Fprintln(p.out)
		return "", false
	}
	return strings.TrimSpace(p.in.Text()), true
}

func (p *prompter) action() wizardAction {
	for {
		fmt.Fprintln(p.out, "O que deseja fazer?")
		fmt.Fprintln(p.out, "  1) Pesquisar no Google")
		fmt.Fprintln(p.out, "  2) Extrair um perfil do Instagram")
		fmt.Fprintln(p.out, "  3) Sair")
		ans, ok := p.line("> ")
		if !ok {
			return actionExit
		}
		switch strings.ToLower(ans) {
		case "1", "google", "search":
			return actionSearch
		case "2", "instagram", "profile":
			return actionProfile
		case "3", "sair", "exit", "q":
			return actionExit
		}
		fmt.Fprintln(p.out, "Escolha 1, 2 ou 3.")
	}
}

func (p *prompter) required(question, complaint string) (string, bool) {
	for {
		ans, ok := p.line(question)
		if !ok {
			return "", false
		}
		if ans != "" {
			return ans, true
		}
		fmt.Fprintln(p.out, complaint)
	}
}

func (p *prompter) intInRange(question string, def, lo, hi int) int {
	for {
		ans, ok := p.line(question)
		if !ok || ans == "" {
			return def
		}
		n, err := strconv.Atoi(ans)
		if err == nil && n >= lo && n <= hi {
			return n
		}
		fmt.Fprintf(p.out, "Escolha entre %d e %d.\n", lo, hi)
	}
}

func (p *prompter) confirm(question string, def bool) bool {
	for {
		ans, ok := p.line(question)
		if !ok || ans == "" {
			return def
		}
		switch strings.ToLower(ans) {
		case "s", "sim", "y", "yes":
			return true
		case "n", "nao", "não", "no":
			return false
		}
		fmt.Fprintln(p.out, "Responda s ou n.")
	}
}

// task asks for the next action and its parameters.
func (p *prompter) task() wizardTask {
	t := wizardTask{Action: p.action()}
	switch t.Action {
	case actionSearch:
		q, ok := p.required("Termo de busca: ", "O termo de busca não pode estar vazio.")
		if !ok {
			return wizardTask{Action: actionExit}
		}
		t.Query = q
		t.MaxPages = p.intInRange("Número de páginas (padrão: 3): ", 3, 1, 10)
		t.Headless = p.confirm("Modo headless, sem janela? (s/N) ", false)
	case actionProfile:
		u, ok := p.required("URL do perfil: ", "A URL não pode estar vazia.")
		if !ok {
			return wizardTask{Action: actionExit}
		}
		t.Query = u
		t.Headless = p.confirm("Modo headless, sem janela? (s/N) ", false)
	}
	return t
}

func runWizard(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(os.Stderr)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	p := newPrompter(cmd.InOrStdin(), w)

	for {
		t := p.task()
		if t.Action == actionExit {
			break
		}

		run := *cfg
		run.Browser.Headless = t.Headless
		switch t.Action {
		case actionSearch:
			searchPages = t.MaxPages
			err = executeSearch(cmd, &run, t.Query)
		case actionProfile:
			err = executeProfile(cmd, &run, t.Query)
		}
		if err != nil {
			slog.Error("wizard task failed", "action", t.Action, "error", err)
			fmt.Fprintln(w, "Erro:", err)
		}

		if !p.confirm("Deseja fazer outra ação? (S/n) ", true) {
			break
		}
	}
	fmt.Fprintln(w, "\nAté logo!")
	return nil
}
