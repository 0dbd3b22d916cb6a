package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"firestige.xyz/netbackup/internal/models"
)

var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Manage registered devices",
}

var (
	deviceAlias       string
	devicePort        int
	deviceProtocol    string
	deviceType        string
	deviceUsername    string
	devicePassword    string
	deviceEnablePass  string
	deviceCommandFlag string
)

var deviceAddCmd = &cobra.Command{
	Use:   "add <ip_address>",
	Short: "Register a device, encrypting its credentials with the Credential Vault",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		d, closeFn, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		passwordCipher, err := d.Vault.Encrypt(devicePassword)
		if err != nil {
			return fmt.Errorf("encrypt password: %w", err)
		}
		var enableCipher string
		if deviceEnablePass != "" {
			enableCipher, err = d.Vault.Encrypt(deviceEnablePass)
			if err != nil {
				return fmt.Errorf("encrypt enable password: %w", err)
			}
		}

		command := deviceCommandFlag
		if command == "" {
			command = "show running-config"
		}

		device := models.Device{
			Alias:                deviceAlias,
			IPAddress:            args[0],
			Port:                 devicePort,
			Protocol:             models.Protocol(deviceProtocol),
			DeviceType:           deviceType,
			Username:             deviceUsername,
			PasswordCipher:       passwordCipher,
			EnablePasswordCipher: enableCipher,
			Command:              command,
			Active:               true,
		}
		created, err := d.Tasks.InsertDevice(ctx, device)
		if err != nil {
			return err
		}
		fmt.Printf("registered device %d (%s)\n", created.ID, created.IPAddress)
		return nil
	},
}

var deviceTestCmd = &cobra.Command{
	Use:   "test <device_id>",
	Short: "Open and release a session without running a capture, surfacing auth/transport failures up front",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deviceID, err := parseID(args[0])
		if err != nil {
			return err
		}
		ctx := context.Background()
		d, closeFn, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		if err := d.Orch.TestConnection(ctx, deviceID); err != nil {
			return err
		}
		fmt.Println("ok")
		return nil
	},
}

func init() {
	deviceAddCmd.Flags().StringVar(&deviceAlias, "alias", "", "operator-facing alias")
	deviceAddCmd.Flags().IntVar(&devicePort, "port", 22, "transport port")
	deviceAddCmd.Flags().StringVar(&deviceProtocol, "protocol", "ssh", "ssh or telnet")
	deviceAddCmd.Flags().StringVar(&deviceType, "device-type", "cisco_ios", "device_type tag")
	deviceAddCmd.Flags().StringVar(&deviceUsername, "username", "", "login username")
	deviceAddCmd.Flags().StringVar(&devicePassword, "password", "", "login password (encrypted before storage)")
	deviceAddCmd.Flags().StringVar(&deviceEnablePass, "enable-password", "", "enable password (encrypted before storage)")
	deviceAddCmd.Flags().StringVar(&deviceCommandFlag, "command", "", "default capture command (default: show running-config)")
	_ = deviceAddCmd.MarkFlagRequired("username")
	_ = deviceAddCmd.MarkFlagRequired("password")

	deviceCmd.AddCommand(deviceAddCmd)
	deviceCmd.AddCommand(deviceTestCmd)
}
