package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/use-agent/leadscout/phone"
	"github.com/use-agent/leadscout/store"
)

var (
	phonesLinks  []string
	phonesJSON   bool
	phonesStored string
)

var phonesCmd = &cobra.Command{
	Use:   "phones [bio]",
	Short: "Extract Brazilian phones from a bio and links, or list stored leads",
	Example: `  leadscout phones 'Agende pelo WhatsApp (11) 91234-5678'
  leadscout phones --link https://wa.me/5511912345678
  echo "$BIO" | leadscout phones -
  leadscout phones --stored data/leads.db`,
	RunE: runPhones,
}

func init() {
	f := phonesCmd.Flags()
	f.StringSliceVarP(&phonesLinks, "link", "l", nil, "bio link to inspect (repeatable)")
	f.BoolVar(&phonesJSON, "json", false, "print the full phone set as JSON")
	f.StringVar(&phonesStored, "stored", "", "list primary phones from this lead store instead")
	rootCmd.AddCommand(phonesCmd)
}

func runPhones(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(os.Stderr); err != nil {
		return err
	}
	w := cmd.OutOrStdout()

	if phonesStored != "" {
		return listStoredPhones(cmd, w)
	}

	bio := strings.Join(args, " ")
	if bio == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read bio from stdin: %w", err)
		}
		bio = string(data)
	}
	if strings.TrimSpace(bio) == "" && len(phonesLinks) == 0 {
		return errors.New("nothing to scan: pass a bio, '-' for stdin, or --link")
	}

	in := phone.Input{Bio: bio}
	if len(phonesLinks) > 0 {
		in.Link = phonesLinks[0]
		in.BioLinks = phonesLinks[1:]
	}
	set := phone.Extract(in)

	if phonesJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(set)
	}
	if len(set.Details) == 0 {
		fmt.Fprintln(w, "no phones found")
		return nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Phone", "E.164", "Confidence", "Sources"})
	for _, d := range set.Details {
		t.AppendRow(table.Row{d.PhonePtBr, d.PhoneE164, string(d.Confidence), strings.Join(d.Sources, ", ")})
	}
	t.AppendFooter(table.Row{"primary", set.PrimaryE164, string(set.PrimaryConfidence), ""})
	fmt.Fprintln(w, t.Render())
	return nil
}

func listStoredPhones(cmd *cobra.Command, w io.Writer) error {
	st, err := store.Open(phonesStored)
	if err != nil {
		return err
	}
	defer st.Close()

	leads, err := st.Phones(cmd.Context())
	if err != nil {
		return err
	}
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Username", "Phone", "Confidence", "Query"})
	for _, l := range leads {
		t.AppendRow(table.Row{"@" + l.Username, phone.FormatPtBr(l.PrimaryPhone), string(l.PrimaryConfidence), l.Query})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d leads", len(leads)), "", ""})
	fmt.Fprintln(w, t.Render())
	return nil
}
