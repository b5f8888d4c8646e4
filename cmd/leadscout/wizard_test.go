package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrompterTask_Search(t *testing.T) {
	var out bytes.Buffer
	p := newPrompter(strings.NewReader("9\n1\n\nsite:instagram.com confeitaria\n42\n4\ns\n"), &out)

	task := p.task()

	assert.Equal(t, wizardTask{
		Action:   actionSearch,
		Query:    "site:instagram.com confeitaria",
		MaxPages: 4,
		Headless: true,
	}, task)
	assert.Contains(t, out.String(), "Escolha 1, 2 ou 3.")
	assert.Contains(t, out.String(), "O termo de busca não pode estar vazio.")
	assert.Contains(t, out.String(), "Escolha entre 1 e 10.")
}

func TestPrompterTask_SearchDefaults(t *testing.T) {
	p := newPrompter(strings.NewReader("google\ndentista\n\n\n"), &bytes.Buffer{})

	task := p.task()

	assert.Equal(t, 3, task.MaxPages)
	assert.False(t, task.Headless)
}

func TestPrompterTask_Profile(t *testing.T) {
	p := newPrompter(strings.NewReader("2\nhttps://www.instagram.com/docesdaana/\nn\n"), &bytes.Buffer{})

	task := p.task()

	assert.Equal(t, actionProfile, task.Action)
	assert.Equal(t, "https://www.instagram.com/docesdaana/", task.Query)
	assert.False(t, task.Headless)
}

func TestPrompterTask_ClosedInputExits(t *testing.T) {
	assert.Equal(t, actionExit, newPrompter(strings.NewReader(""), &bytes.Buffer{}).task().Action)
	assert.Equal(t, actionExit, newPrompter(strings.NewReader("1\n"), &bytes.Buffer{}).task().Action)
}

func TestPrompterConfirm(t *testing.T) {
	p := newPrompter(strings.NewReader("talvez\nSim\n"), &bytes.Buffer{})
	assert.True(t, p.confirm("? ", false))
	assert.True(t, p.confirm("? ", true))
}
