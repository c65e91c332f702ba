package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/alexwilkerson/cas2wav/config"
	"github.com/alexwilkerson/cas2wav/fsk"
)

var errAborted = errors.New("aborted")

// lineReader is the part of liner.State used for prompting.
type lineReader interface {
	Prompt(prompt string) (string, error)
}

// prompter asks for the settings one question at a time. An empty answer
// keeps the default, an invalid one asks again.
type prompter struct {
	in lineReader
}

func (p *prompter) ask(question string) (string, error) {
	answer, err := p.in.Prompt(question)
	if err != nil {
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			return "", errAborted
		}
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

func (p *prompter) yesNo(question string, def bool) (bool, error) {
	for {
		answer, err := p.ask(question)
		if err != nil {
			return false, err
		}
		if answer == "" {
			return def, nil
		}
		switch strings.ToUpper(answer[:1]) {
		case "Y":
			return true, nil
		case "N":
			return false, nil
		}
	}
}

func (p *prompter) number(question string, def int) (int, error) {
	for {
		answer, err := p.ask(question)
		if err != nil {
			return 0, err
		}
		if answer == "" {
			return def, nil
		}
		if v, err := strconv.Atoi(answer); err == nil && v >= 0 {
			return v, nil
		}
	}
}

// settings asks for the image to convert and the conversion settings,
// updating cfg. It returns the path of the image.
func (p *prompter) settings(cfg *config.Config) (string, error) {
	var path string
	for path == "" {
		answer, err := p.ask("Enter .cas file to be converted : ")
		if err != nil {
			return "", err
		}
		if answer == "" {
			continue
		}
		ok, err := p.yesNo(fmt.Sprintf("Convert file %s, is this correct [Y]es or N)o : ", answer), true)
		if err != nil {
			return "", err
		}
		if ok {
			path = answer
		}
	}

	var err error
	if cfg.Diagnostics, err = p.yesNo("Print diagnostic data [Y]es or N)o : ", true); err != nil {
		return "", err
	}

	for {
		answer, err := p.ask("Do you want s)ine waves, b)lock waves or p)ure waves? [s]: ")
		if err != nil {
			return "", err
		}
		if answer == "" {
			answer = "s"
		}
		if shape, err := fsk.ParseShape(answer); err == nil {
			cfg.Wave = shape.String()
			break
		}
	}

	if cfg.Zero, err = p.yesNo("Use space/mark transition at zero level Y)es or [N]o : ", false); err != nil {
		return "", err
	}
	if cfg.MarkTone, err = p.number(fmt.Sprintf("Enter mark frequency [%d]: ", cfg.MarkTone), cfg.MarkTone); err != nil {
		return "", err
	}
	if cfg.SpaceTone, err = p.number(fmt.Sprintf("Enter space frequency [%d]: ", cfg.SpaceTone), cfg.SpaceTone); err != nil {
		return "", err
	}
	if cfg.Baud, err = p.number("Enter fixed baudrate if desired 425 - 875 : ", cfg.Baud); err != nil {
		return "", err
	}
	if cfg.Leader, err = p.number("Length of leader if fixed length in milli-seconds : ", cfg.Leader); err != nil {
		return "", err
	}
	if cfg.IRG, err = p.number("Length of Inter Record Gap if fixed length in milli-seconds : ", cfg.IRG); err != nil {
		return "", err
	}
	return path, nil
}

// promptSettings runs the questions on the terminal.
func promptSettings(cfg *config.Config) (string, error) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	p := &prompter{in: line}
	return p.settings(cfg)
}
