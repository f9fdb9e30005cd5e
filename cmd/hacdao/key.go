package main

import (
	"fmt"
	"os"

	"github.com/calehh/hac-dao/config"
	"github.com/calehh/hac-dao/crypto"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
)

type keyArguments struct {
	File      string
	Overwrite bool
}

var keyArgs keyArguments

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the member signing key",
}

var keyNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Generate a member key",
	Args:  cobra.NoArgs,
	RunE:  keyNewRun,
}

var keyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the member address and public key",
	Args:  cobra.NoArgs,
	RunE:  keyShowRun,
}

func init() {
	defaultKey := os.ExpandEnv(config.DefaultHomeDir + "/config/" + config.MemberKeyFile)
	keyCmd.PersistentFlags().StringVarP(&keyArgs.File, "key", "k", defaultKey, "member key file")
	keyNewCmd.Flags().BoolVarP(&keyArgs.Overwrite, FlagOverwrite, "o", false, "replace an existing key")
	keyCmd.AddCommand(keyNewCmd)
	keyCmd.AddCommand(keyShowCmd)
}

func keyNewRun(cmd *cobra.Command, args []string) error {
	signer, err := crypto.GenerateKeyFile(keyArgs.File, keyArgs.Overwrite)
	if err != nil {
		return err
	}
	printKey(signer)
	return nil
}

func keyShowRun(cmd *cobra.Command, args []string) error {
	signer, err := crypto.LoadKeySigner(keyArgs.File)
	if err != nil {
		return err
	}
	printKey(signer)
	return nil
}

func printKey(signer *crypto.KeySigner) {
	fmt.Println("address:", signer.Address().Hex())
	fmt.Println("pubkey:", hexutil.Encode(signer.PublicKey()))
}
