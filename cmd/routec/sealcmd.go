package main

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/veraison/go-cose"

	"github.com/routewire/go-routetable/seal"
)

func newSealCmd(root *rootOptions) *cobra.Command {
	var (
		keyPath string
		keyID   string
		issuer  string
		outPath string
	)
	cmd := &cobra.Command{
		Use:   "seal <artifact>",
		Short: "Sign a deployment checkpoint for an artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			key, err := loadSigningKey(keyPath)
			if err != nil {
				return err
			}
			signer, err := cose.NewSigner(cose.AlgorithmES256, key)
			if err != nil {
				return err
			}
			sealer, err := seal.NewSealer()
			if err != nil {
				return err
			}
			cp, err := seal.NewCheckpoint(issuer, data)
			if err != nil {
				return err
			}
			envelope, err := sealer.Sign(signer, keyID, cp)
			if err != nil {
				return err
			}
			if outPath == "" {
				outPath = args[0] + ".seal"
			}
			if err := os.WriteFile(outPath, envelope, 0o644); err != nil {
				return err
			}
			root.log.Infow("sealed artifact",
				"artifact", args[0], "seal", outPath, "build_id", cp.BuildID)
			return nil
		},
	}
	cmd.Flags().StringVar(&keyPath, "key", "", "EC private key (PEM)")
	cmd.Flags().StringVar(&keyID, "kid", "routec", "key identifier placed in the envelope")
	cmd.Flags().StringVar(&issuer, "issuer", "routec", "issuer recorded in the checkpoint")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "seal output path (default <artifact>.seal)")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func newVerifyCmd() *cobra.Command {
	var pubPath string
	cmd := &cobra.Command{
		Use:   "verify <artifact> <seal>",
		Short: "Verify a checkpoint against an artifact",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			envelope, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			pub, err := loadVerifyingKey(pubPath)
			if err != nil {
				return err
			}
			verifier, err := cose.NewVerifier(cose.AlgorithmES256, pub)
			if err != nil {
				return err
			}
			sealer, err := seal.NewSealer()
			if err != nil {
				return err
			}
			cp, err := sealer.Verify(envelope, verifier)
			if err != nil {
				return err
			}
			if err := cp.Matches(data); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: issuer=%s build_id=%s nodes=%d\n",
				cp.Issuer, cp.BuildID, cp.NodeCount)
			return nil
		},
	}
	cmd.Flags().StringVar(&pubPath, "pub", "", "EC public key (PEM)")
	_ = cmd.MarkFlagRequired("pub")
	return cmd
}

func loadSigningKey(path string) (*ecdsa.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("%s: no PEM block", path)
	}
	switch block.Type {
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		ec, ok := key.(*ecdsa.PrivateKey)
		if !ok {
			return nil, errors.New("not an EC private key")
		}
		return ec, nil
	default:
		return nil, fmt.Errorf("%s: unsupported PEM block %q", path, block.Type)
	}
}

func loadVerifyingKey(path string) (*ecdsa.PublicKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("%s: no PEM block", path)
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	pub, ok := key.(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.New("not an EC public key")
	}
	return pub, nil
}
