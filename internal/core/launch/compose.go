package launch

import (
	"strconv"

	"github.com/compose-spec/compose-go/v2/types"
)

// DefaultProjectName names exported compose projects.
const DefaultProjectName = "storm-docker"

// ComposeProject converts container plans into a compose project. Links
// between planned containers become service links; links to containers
// outside the project become external links.
func ComposeProject(name string, plans []ContainerPlan) *types.Project {
	if name == "" {
		name = DefaultProjectName
	}
	inProject := make(map[string]string, len(plans))
	for _, p := range plans {
		inProject[p.Name] = string(p.Component)
	}

	project := &types.Project{
		Name:     name,
		Services: types.Services{},
	}
	for _, p := range plans {
		project.Services[string(p.Component)] = composeService(p, inProject)
	}
	return project
}

// MarshalCompose renders plans as compose YAML.
func MarshalCompose(name string, plans []ContainerPlan) ([]byte, error) {
	return ComposeProject(name, plans).MarshalYAML()
}

func composeService(p ContainerPlan, inProject map[string]string) types.ServiceConfig {
	svc := types.ServiceConfig{
		Name:          string(p.Component),
		Image:         p.Image,
		ContainerName: p.Name,
		Hostname:      p.Hostname,
		DNS:           append(types.StringList(nil), p.DNS...),
		Environment:   types.MappingWithEquals{},
		Labels:        types.Labels{},
		Command:       append(types.ShellCommand(nil), p.Args...),
	}
	for _, pm := range p.Ports {
		svc.Ports = append(svc.Ports, types.ServicePortConfig{
			Target:    uint32(pm.ContainerPort),
			Published: strconv.Itoa(pm.HostPort),
			Protocol:  pm.Protocol,
		})
	}
	for _, e := range p.Exposed {
		svc.Expose = append(svc.Expose, strconv.Itoa(e))
	}
	for _, l := range p.Links {
		if service, ok := inProject[l.Container]; ok {
			svc.Links = append(svc.Links, service+":"+l.Alias)
			continue
		}
		svc.ExternalLinks = append(svc.ExternalLinks, l.String())
	}
	for k, v := range p.Env {
		value := v
		svc.Environment[k] = &value
	}
	for k, v := range p.Labels {
		svc.Labels[k] = v
	}
	return svc
}
