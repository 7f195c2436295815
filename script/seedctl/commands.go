package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/linlinbupt123-crypto/seed_custody/domain"
)

const (
	envMnemonic = "SEEDCTL_MNEMONIC"
	envPassword = "SEEDCTL_PASSWORD"

	maxDeriveCount = 1000
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "seedctl",
		Short:        "Seed custody operator tool",
		SilenceUsage: true,
	}
	root.AddCommand(
		newGenerateCmd(),
		newValidateCmd(),
		newDeriveCmd(),
		newEncryptCmd(),
		newDecryptCmd(),
		newFormatCmd(),
	)
	return root
}

// secretInput resolves a secret from its flag, then its environment
// variable, then the first line of stdin.
func secretInput(cmd *cobra.Command, flagValue, env, name string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if v := os.Getenv(env); v != "" {
		return v, nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("%s is required (flag, $%s or stdin)", name, env)
	}
	return line, nil
}

func newGenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Generate a fresh 12-word mnemonic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := domain.GenerateMnemonic()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), m)
			return nil
		},
	}
}

func newValidateCmd() *cobra.Command {
	var mnemonic string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a mnemonic's word count, wordlist and checksum",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := secretInput(cmd, mnemonic, envMnemonic, "mnemonic")
			if err != nil {
				return err
			}
			if _, err := domain.ParseMnemonic(m); err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), "invalid")
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "valid")
			return nil
		},
	}
	cmd.Flags().StringVar(&mnemonic, "mnemonic", "", "mnemonic to check (prefer $"+envMnemonic+" or stdin)")
	return cmd
}

func newDeriveCmd() *cobra.Command {
	var (
		mnemonic string
		index    uint32
		count    int
	)
	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive EVM addresses along m/44'/60'/0'/0/i",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count <= 0 || count > maxDeriveCount {
				return fmt.Errorf("--count must be between 1 and %d", maxDeriveCount)
			}
			m, err := secretInput(cmd, mnemonic, envMnemonic, "mnemonic")
			if err != nil {
				return err
			}
			results, err := deriveBatch(cmd, m, index, count)
			if err != nil {
				return err
			}
			for _, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", r.DerivationPath, r.Address)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&mnemonic, "mnemonic", "", "mnemonic (prefer $"+envMnemonic+" or stdin)")
	cmd.Flags().Uint32Var(&index, "index", 0, "first address index")
	cmd.Flags().IntVar(&count, "count", 1, "number of consecutive addresses")
	return cmd
}

func deriveBatch(cmd *cobra.Command, mnemonic string, start uint32, count int) ([]*domain.DerivedAddress, error) {
	if uint64(start)+uint64(count)-1 > domain.MaxAddressIndex {
		return nil, fmt.Errorf("--index %d with --count %d runs past %d", start, count, uint32(domain.MaxAddressIndex))
	}
	results := make([]*domain.DerivedAddress, count)
	g, _ := errgroup.WithContext(cmd.Context())
	g.SetLimit(8)
	for i := 0; i < count; i++ {
		i := i
		g.Go(func() error {
			d, err := domain.DeriveEthereumAddress(mnemonic, start+uint32(i))
			if err != nil {
				return err
			}
			results[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func newEncryptCmd() *cobra.Command {
	var (
		mnemonic, email, password string
		iterations                int
	)
	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Seal a mnemonic into a vault blob",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := secretInput(cmd, mnemonic, envMnemonic, "mnemonic")
			if err != nil {
				return err
			}
			normalized, err := domain.ParseMnemonic(m)
			if err != nil {
				return err
			}
			pw, err := secretInput(cmd, password, envPassword, "password")
			if err != nil {
				return err
			}
			v := domain.NewSeedVault(domain.WithIterations(iterations))
			blob, err := v.Encrypt(normalized, email, pw)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), blob)
			return nil
		},
	}
	cmd.Flags().StringVar(&mnemonic, "mnemonic", "", "mnemonic (prefer $"+envMnemonic+" or stdin)")
	cmd.Flags().StringVar(&email, "email", "", "email the blob is bound to")
	cmd.Flags().StringVar(&password, "password", "", "vault password (prefer $"+envPassword+")")
	cmd.Flags().IntVar(&iterations, "iterations", domain.DefaultKDFIterations, "PBKDF2 iterations")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newDecryptCmd() *cobra.Command {
	var blob, email, password string
	cmd := &cobra.Command{
		Use:   "decrypt",
		Short: "Open a vault blob in any supported format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := secretInput(cmd, password, envPassword, "password")
			if err != nil {
				return err
			}
			opened, err := domain.NewSeedVault().Open(blob, email, pw)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, opened.Mnemonic)
			if opened.NeedsUpgrade() {
				fmt.Fprintf(cmd.ErrOrStderr(), "note: blob is %s; re-encrypt to upgrade\n", opened.Format)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&blob, "blob", "", "vault blob")
	cmd.Flags().StringVar(&email, "email", "", "email the blob is bound to")
	cmd.Flags().StringVar(&password, "password", "", "vault password (prefer $"+envPassword+")")
	_ = cmd.MarkFlagRequired("blob")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newFormatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "format <blob>",
		Short: "Report a vault blob's format without decrypting it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := domain.DetectFormat(args[0])
			if f == domain.FormatUnknown {
				return errors.New("unrecognised blob format")
			}
			fmt.Fprintln(cmd.OutOrStdout(), f)
			return nil
		},
	}
}
