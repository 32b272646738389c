package client

import (
	"context"
	"fmt"

	"github.com/robotalks/buspirate.go/pkg/protocol"
)

func (c *Client) doSuccess(ctx context.Context, cmd protocol.Message) error {
	resp, err := c.Do(ctx, cmd)
	if err != nil {
		return err
	}
	if _, ok := resp.Reply.(protocol.ReplySuccess); !ok {
		return unexpected("Success", resp.Reply)
	}
	return nil
}

func (c *Client) doData(ctx context.Context, cmd protocol.Message) ([]byte, error) {
	resp, err := c.Do(ctx, cmd)
	if err != nil {
		return nil, err
	}
	data, ok := resp.Reply.(protocol.ReplyData)
	if !ok {
		return nil, unexpected("Data", resp.Reply)
	}
	return data.Data(), nil
}

// SetMode switches the active mode.
func (c *Client) SetMode(ctx context.Context, mode protocol.Mode) error {
	return c.doSuccess(ctx, protocol.SetMode{Mode: mode})
}

// GetMode queries the active mode.
func (c *Client) GetMode(ctx context.Context) (protocol.Mode, error) {
	resp, err := c.Do(ctx, protocol.GetMode{})
	if err != nil {
		return 0, err
	}
	current, ok := resp.Reply.(protocol.ReplyCurrentMode)
	if !ok {
		return 0, unexpected("CurrentMode", resp.Reply)
	}
	return current.Mode, nil
}

// I2cScan returns the addresses of responding I2C devices.
func (c *Client) I2cScan(ctx context.Context) ([]uint8, error) {
	resp, err := c.Do(ctx, protocol.I2cScan{})
	if err != nil {
		return nil, err
	}
	devices, ok := resp.Reply.(protocol.ReplyI2cDevices)
	if !ok {
		return nil, unexpected("I2cDevices", resp.Reply)
	}
	return devices.Addrs(), nil
}

// I2cWrite writes bytes to an I2C device.
func (c *Client) I2cWrite(ctx context.Context, addr uint8, data []byte) error {
	cmd, err := protocol.NewI2cWrite(addr, data)
	if err != nil {
		return err
	}
	return c.doSuccess(ctx, cmd)
}

// I2cRead reads n bytes from an I2C device.
func (c *Client) I2cRead(ctx context.Context, addr, n uint8) ([]byte, error) {
	return c.doData(ctx, protocol.I2cRead{Addr: addr, Len: n})
}

// I2cReadRegister reads one register.
func (c *Client) I2cReadRegister(ctx context.Context, addr, reg uint8) (uint8, error) {
	data, err := c.doData(ctx, protocol.I2cReadRegister{Addr: addr, Reg: reg})
	if err != nil {
		return 0, err
	}
	if len(data) != 1 {
		return 0, fmt.Errorf("%w: %d bytes, want 1", ErrUnexpectedReply, len(data))
	}
	return data[0], nil
}

// I2cWriteRegister writes one register.
func (c *Client) I2cWriteRegister(ctx context.Context, addr, reg, value uint8) error {
	return c.doSuccess(ctx, protocol.I2cWriteRegister{Addr: addr, Reg: reg, Value: value})
}

// SpiTransfer clocks data out and returns the bytes clocked in.
func (c *Client) SpiTransfer(ctx context.Context, data []byte) ([]byte, error) {
	cmd, err := protocol.NewSpiTransfer(data)
	if err != nil {
		return nil, err
	}
	return c.doData(ctx, cmd)
}

// UartWrite transmits bytes.
func (c *Client) UartWrite(ctx context.Context, data []byte) error {
	cmd, err := protocol.NewUartWrite(data)
	if err != nil {
		return err
	}
	return c.doSuccess(ctx, cmd)
}

// UartRead receives up to n bytes.
func (c *Client) UartRead(ctx context.Context, n uint16) ([]byte, error) {
	return c.doData(ctx, protocol.UartRead{Len: n})
}

// UartConfig sets the UART baudrate.
func (c *Client) UartConfig(ctx context.Context, baudrate uint32) error {
	return c.doSuccess(ctx, protocol.UartConfig{Baudrate: baudrate})
}

// SetConfig stores a configuration value on the device.
func (c *Client) SetConfig(ctx context.Context, key, value string) error {
	cmd, err := protocol.NewSetConfig(key, value)
	if err != nil {
		return err
	}
	return c.doSuccess(ctx, cmd)
}

// GetConfig loads a configuration value from the device.
func (c *Client) GetConfig(ctx context.Context, key string) (string, error) {
	cmd, err := protocol.NewGetConfig(key)
	if err != nil {
		return "", err
	}
	resp, err := c.Do(ctx, cmd)
	if err != nil {
		return "", err
	}
	value, ok := resp.Reply.(protocol.ReplyConfigValue)
	if !ok {
		return "", unexpected("ConfigValue", resp.Reply)
	}
	return value.Value(), nil
}

// FileList lists a directory on the device.
func (c *Client) FileList(ctx context.Context, path string) ([]string, error) {
	cmd, err := protocol.NewFileList(path)
	if err != nil {
		return nil, err
	}
	resp, err := c.Do(ctx, cmd)
	if err != nil {
		return nil, err
	}
	list, ok := resp.Reply.(protocol.ReplyFileList)
	if !ok {
		return nil, unexpected("FileList", resp.Reply)
	}
	return list.Names(), nil
}

// FileRead reads a file from the device.
func (c *Client) FileRead(ctx context.Context, path string) ([]byte, error) {
	cmd, err := protocol.NewFileRead(path)
	if err != nil {
		return nil, err
	}
	return c.doData(ctx, cmd)
}

// FileWrite writes a file on the device.
func (c *Client) FileWrite(ctx context.Context, path string, data []byte) error {
	cmd, err := protocol.NewFileWrite(path, data)
	if err != nil {
		return err
	}
	return c.doSuccess(ctx, cmd)
}
